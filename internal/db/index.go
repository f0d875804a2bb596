package db

import (
	"context"
	"strings"

	"github.com/redis/rueidis"
)

// CheckIndex probes index existence via FT.INFO; "unknown index name"
// maps to ErrIndexNotFound.
func (s *Store) CheckIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return ErrIndexNotFound
		}
		return &Error{Op: OpInfo, Err: err}
	}
	return nil
}

func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), substr)
}
