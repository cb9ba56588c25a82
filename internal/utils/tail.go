package utils

import (
	"bufio"
	"os"
)

/**
 * Read the last lines of a file
 * @param {string} path - File path
 * @param {int} n - Maximum number of lines
 * @returns {[]string} Up to n trailing lines, oldest first
 * @returns {error} Open or scan error
 */
func TailFile(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return ring, err
	}
	return ring, nil
}
