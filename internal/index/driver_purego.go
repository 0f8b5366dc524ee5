//go:build purego

package index

import (
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

func dsn(path string) string {
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
