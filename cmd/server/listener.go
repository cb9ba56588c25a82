package server

import (
	"net"
	"os"
	"path/filepath"

	"devhost-keeper/internal/logger"
)

type ListenAddr struct {
	Network string
	Address string
}

/**
 * Create TCP and Unix socket listeners
 * @param {[]ListenAddr} addrs - Listener addresses
 * @returns {[]net.Listener} Listeners that could be created
 * @returns {error} Last creation error, if any
 * @description
 * - Removes a stale socket file before listening on it
 * - Socket files are made group and world writable so unprivileged users can query status
 * - A failed address is logged and skipped, the others are still created
 */
func CreateListeners(addrs []ListenAddr) ([]net.Listener, error) {
	var listeners []net.Listener

	var lastErr error
	for _, addr := range addrs {
		if addr.Network == "unix" {
			if err := os.MkdirAll(filepath.Dir(addr.Address), 0755); err != nil {
				logger.Errorf("Failed to create socket directory: %v", err)
				lastErr = err
				continue
			}
			if err := os.Remove(addr.Address); err != nil && !os.IsNotExist(err) {
				logger.Errorf("Failed to remove existing socket file: %v", err)
				lastErr = err
				continue
			}
		}
		listener, err := net.Listen(addr.Network, addr.Address)
		if err != nil {
			logger.Errorf("Failed to create listener on %s://%s: %v", addr.Network, addr.Address, err)
			lastErr = err
			continue
		}
		if addr.Network == "unix" {
			// 设置socket文件权限
			os.Chmod(addr.Address, 0666)
		}
		listeners = append(listeners, listener)
	}
	return listeners, lastErr
}
