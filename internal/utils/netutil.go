package utils

import (
	"net"
	"time"
)

/**
 * Check if something is listening on an address
 * @param {string} addr - host:port
 * @returns {bool} True when a TCP connection can be established
 */
func CheckPortConnectable(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

/**
 * Check if an address can be bound
 * @param {string} addr - host:port
 * @returns {bool} True when nothing else holds the address
 */
func CheckPortListenable(addr string) bool {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	l.Close()
	return true
}
