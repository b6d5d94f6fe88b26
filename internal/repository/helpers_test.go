package repository

import (
	"os"
	"time"
)

func chtimes(path string, t time.Time) error { return os.Chtimes(path, t, t) }

func writeFile(path, content string) error { return os.WriteFile(path, []byte(content), 0o644) }
