package listing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"
)

const ftpDialTimeout = 10 * time.Second

// ftpConn is the slice of *ftp.ServerConn the source actually uses.
type ftpConn interface {
	List(path string) ([]*ftp.Entry, error)
	Quit() error
}

// FTPSource lists the current month's directory on an FTP server and maps
// each image entry to a public URL under BaseURL. Each List call opens a
// fresh connection and closes it before returning; no state survives
// between invocations.
type FTPSource struct {
	Host     string
	User     string
	Password string
	BaseURL  string
	Logger   *zap.Logger

	// Now is the clock used to pick the month directory. Defaults to
	// time.Now.
	Now func() time.Time

	// dial is swapped out in tests.
	dial func(ctx context.Context, host, user, password string) (ftpConn, error)
}

func NewFTPSource(host, user, password, baseURL string, logger *zap.Logger) *FTPSource {
	return &FTPSource{
		Host:     host,
		User:     user,
		Password: password,
		BaseURL:  baseURL,
		Logger:   logger,
		Now:      time.Now,
		dial:     dialFTP,
	}
}

func dialFTP(ctx context.Context, host, user, password string) (ftpConn, error) {
	conn, err := ftp.Dial(host+":21", ftp.DialWithContext(ctx), ftp.DialWithTimeout(ftpDialTimeout))
	if err != nil {
		return nil, err
	}
	if err := conn.Login(user, password); err != nil {
		conn.Quit()
		return nil, err
	}
	return conn, nil
}

func (s *FTPSource) List(ctx context.Context) ([]string, error) {
	if s.Host == "" || s.User == "" || s.Password == "" || s.BaseURL == "" {
		return nil, fmt.Errorf("ftp listing: %w", ErrNotConfigured)
	}

	conn, err := s.dial(ctx, s.Host, s.User, s.Password)
	if err != nil {
		return nil, &RetrievalError{Op: "ftp connect", Err: err}
	}
	defer conn.Quit()

	month := strconv.Itoa(int(s.Now().Month()))
	entries, err := conn.List("/" + month)
	if err != nil {
		// Partial availability beats total failure: a missing month
		// directory yields an empty candidate set.
		s.Logger.Warn("ftp directory listing failed",
			zap.String("directory", "/"+month), zap.Error(err))
		entries = nil
	}

	images := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type != ftp.EntryTypeFile || !IsImageFile(entry.Name) {
			continue
		}
		images = append(images, candidateURL(s.BaseURL, month, entry.Name))
	}
	return images, nil
}
