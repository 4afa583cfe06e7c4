package store

import (
	"fmt"
	"os"
)

// Unlock releases a lock acquired by Lock.
type Unlock func() error

// Lock takes the advisory mutation lock when the config enables it.
// The returned Unlock is always non-nil.
func (s *Store) Lock() (Unlock, error) {
	if !s.cfg.Lock {
		return func() error { return nil }, nil
	}
	if err := os.MkdirAll(s.cfg.DataPath(), dirPerms); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := s.cfg.LockPath()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, filePerms)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := flock(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	s.logger.Debug("lock acquired", "path", path)
	return func() error {
		if err := funlock(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}
