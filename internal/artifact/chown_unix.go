//go:build unix

package artifact

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
)

func chown(path, owner string) error {
	u, err := user.Lookup(owner)
	if err != nil {
		return fmt.Errorf("lookup owner %s: %w", owner, err)
	}
	uid, _ := strconv.Atoi(u.Uid)
	gid, _ := strconv.Atoi(u.Gid)
	if uid == os.Geteuid() {
		return nil
	}
	return os.Chown(path, uid, gid)
}
