// Package dashboard 通过HTTP和websocket展示训练曲线（损失、准确率、各类别准确率的离散程度）
package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"DPSGDDev/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// RunInfo 状态页面展示的本次运行信息
type RunInfo struct {
	Name   string `json:"name"`
	Window string `json:"window"`
	RunID  string `json:"run_id"`
}

// HTTPServer 仪表盘HTTP服务器
type HTTPServer struct {
	//Gin框架的路由引擎
	Router *gin.Engine
	//监听地址，例如 ":8097"
	Addr string
	//本机IP地址
	LocalIP string

	info      RunInfo
	startedAt time.Time
	recorder  *metrics.Recorder
	hub       *Hub
	upgrader  websocket.Upgrader
	srv       *http.Server
	logger    logrus.FieldLogger
}

// NewHTTPServer 创建服务器并注册路由，recorder 提供历史序列，hub 推送新数据点
func NewHTTPServer(addr string, info RunInfo, recorder *metrics.Recorder, hub *Hub, logger logrus.FieldLogger) *HTTPServer {
	localIP, err := GetLocalIP()
	if err != nil {
		logger.WithError(err).Warn("获取本机IP失败")
		localIP = "127.0.0.1"
	}

	hs := &HTTPServer{
		Router:    gin.Default(),
		Addr:      addr,
		LocalIP:   localIP,
		info:      info,
		startedAt: time.Now(),
		recorder:  recorder,
		hub:       hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 仪表盘只在本地或内网访问
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
	hs.Router.GET("/status", hs.statusHandler)
	hs.Router.GET("/api/windows", hs.windowsHandler)
	hs.Router.GET("/api/windows/:win", hs.seriesHandler)
	hs.Router.GET("/ws", hs.wsHandler)
	hs.srv = &http.Server{
		Addr:              addr,
		Handler:           hs.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return hs
}

// Start 启动HTTP服务器，阻塞到 Shutdown 被调用
func (hs *HTTPServer) Start() error {
	port := hs.Addr
	if _, p, err := net.SplitHostPort(hs.Addr); err == nil {
		port = p
	}
	hs.logger.WithFields(logrus.Fields{
		"addr":   hs.Addr,
		"status": "http://" + hs.LocalIP + ":" + port + "/status",
		"ws":     "ws://" + hs.LocalIP + ":" + port + "/ws",
	}).Info("仪表盘启动")

	if err := hs.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 断开websocket客户端并优雅关闭服务器
func (hs *HTTPServer) Shutdown(ctx context.Context) error {
	hs.hub.Close()
	return hs.srv.Shutdown(ctx)
}

// statusHandler 运行状态
func (hs *HTTPServer) statusHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"run":        hs.info,
		"started_at": hs.startedAt.Format(time.RFC3339),
		"uptime":     time.Since(hs.startedAt).Round(time.Second).String(),
		"clients":    hs.hub.Clients(),
		"windows":    hs.recorder.Windows(),
	})
}

// windowsHandler 所有图组名称
func (hs *HTTPServer) windowsHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"windows": hs.recorder.Windows()})
}

// seriesHandler 一个图组中的所有序列
func (hs *HTTPServer) seriesHandler(ctx *gin.Context) {
	win := ctx.Param("win")
	series, ok := hs.recorder.Series(win)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "unknown window", "window": win})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"window": win, "series": series})
}

// wsHandler 升级为websocket连接，之后每个新数据点以JSON推送
func (hs *HTTPServer) wsHandler(ctx *gin.Context) {
	conn, err := hs.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		hs.logger.WithError(err).Warn("websocket升级失败")
		return
	}
	hs.hub.serve(conn)
}
