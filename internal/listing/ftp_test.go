package listing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFTPConn struct {
	entries    []*ftp.Entry
	listErr    error
	listedPath string
	quit       bool
}

func (f *fakeFTPConn) List(path string) ([]*ftp.Entry, error) {
	f.listedPath = path
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.entries, nil
}

func (f *fakeFTPConn) Quit() error {
	f.quit = true
	return nil
}

func fixedNow(month time.Month) func() time.Time {
	return func() time.Time {
		return time.Date(2025, month, 15, 12, 0, 0, 0, time.UTC)
	}
}

func fileEntry(name string) *ftp.Entry {
	return &ftp.Entry{Name: name, Type: ftp.EntryTypeFile}
}

func newTestFTPSource(conn *fakeFTPConn) *FTPSource {
	s := NewFTPSource("ftp.example.com", "user", "secret", "https://cdn.example.com/", zap.NewNop())
	s.Now = fixedNow(time.September)
	s.dial = func(ctx context.Context, host, user, password string) (ftpConn, error) {
		return conn, nil
	}
	return s
}

func TestFTPSourceMissingConfiguration(t *testing.T) {
	s := NewFTPSource("", "", "", "", zap.NewNop())
	images, err := s.List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, images)
}

func TestFTPSourceFiltersAndMapsEntries(t *testing.T) {
	conn := &fakeFTPConn{entries: []*ftp.Entry{
		fileEntry("a.png"),
		fileEntry("b.txt"),
		fileEntry("C.JPG"),
		{Name: "subdir", Type: ftp.EntryTypeFolder},
	}}
	s := newTestFTPSource(conn)

	images, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://cdn.example.com/9/a.png",
		"https://cdn.example.com/9/C.JPG",
	}, images)
	assert.Equal(t, "/9", conn.listedPath)
	assert.True(t, conn.quit, "connection must be closed")
}

func TestFTPSourceListFailureDegradesToEmpty(t *testing.T) {
	conn := &fakeFTPConn{listErr: errors.New("550 no such directory")}
	s := newTestFTPSource(conn)

	images, err := s.List(context.Background())
	require.NoError(t, err, "a failed directory read degrades, it does not abort")
	assert.Empty(t, images)
	assert.True(t, conn.quit)
}

func TestFTPSourceConnectFailure(t *testing.T) {
	s := newTestFTPSource(nil)
	s.dial = func(ctx context.Context, host, user, password string) (ftpConn, error) {
		return nil, errors.New("connection refused")
	}

	_, err := s.List(context.Background())
	var rerr *RetrievalError
	require.ErrorAs(t, err, &rerr)
}

func TestFTPSourceIdempotent(t *testing.T) {
	conn := &fakeFTPConn{entries: []*ftp.Entry{fileEntry("a.png"), fileEntry("b.webp")}}
	s := newTestFTPSource(conn)

	first, err := s.List(context.Background())
	require.NoError(t, err)
	second, err := s.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, first, second)
}
