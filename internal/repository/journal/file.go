package journal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/oshokin/safe-walk/internal/domain/walk"
	pb "github.com/oshokin/safe-walk/internal/pb/v1"
)

// DefaultFilePermissions restricts the spool file to its owner.
const DefaultFilePermissions = 0o600

// FileRepository appends alerts to a JSON-lines spool on disk.
// Each line is the protobuf JSON form produced by pb.MarshalAlertJSON.
type FileRepository struct {
	// path is the filesystem location of the spool.
	path string
	// mu serializes appends and reads.
	mu sync.Mutex
}

// NewFileRepository creates a spool at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// SaveAlert appends the alert as one line.
func (r *FileRepository) SaveAlert(_ context.Context, alert *walk.AlertRecord) error {
	if alert == nil {
		return errAlertRequired
	}

	data, err := pb.MarshalAlertJSON(alert)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("open spool: %w", err)
	}

	if _, err = file.Write(append(data, '\n')); err != nil {
		_ = file.Close()

		return fmt.Errorf("write spool: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close spool: %w", err)
	}

	return nil
}

// ListAlerts returns the newest alerts first. A missing spool is empty.
func (r *FileRepository) ListAlerts(_ context.Context, limit int) ([]*walk.AlertRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("open spool: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	var (
		alerts  []*walk.AlertRecord
		scanner = bufio.NewScanner(file)
		line    int
	)

	for scanner.Scan() {
		line++

		if len(scanner.Bytes()) == 0 {
			continue
		}

		alert, err := pb.UnmarshalAlertJSON(scanner.Bytes())
		if err != nil {
			return nil, fmt.Errorf("decode spool line %d: %w", line, err)
		}

		alerts = append(alerts, alert)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("read spool: %w", err)
	}

	slices.Reverse(alerts)

	if len(alerts) > limit {
		alerts = alerts[:limit]
	}

	return alerts, nil
}
