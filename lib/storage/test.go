package storage

import "os"

func CleanDB(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return
	}

	os.RemoveAll(path)
}

func NewTestMemoryLevelDBBackend() (*LevelDBBackend, error) {
	return NewLevelDBBackend(&Config{Scheme: SchemeMemory})
}
