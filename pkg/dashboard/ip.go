package dashboard

import (
	"fmt"
	"net"
	"strings"
)

// GetLocalIP 获取本机IP地址，优先选择有线/无线网卡上的私有IPv4地址
func GetLocalIP() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	var fallback string
	for _, iface := range interfaces {
		// 跳过回环、未启用的接口和虚拟网卡
		name := strings.ToLower(iface.Name)
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 ||
			strings.Contains(name, "vmware") || strings.Contains(name, "virtual") || strings.Contains(name, "docker") {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			if ipnet.IP.IsPrivate() {
				return ipnet.IP.String(), nil
			}
			if fallback == "" {
				fallback = ipnet.IP.String()
			}
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("未找到有效的IP地址")
}
