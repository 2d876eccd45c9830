package remote

import (
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/pkg/errors"
)

// ErrAuth marks a rejected login. Not retryable without operator action.
var ErrAuth = errors.New("remote authentication failed")

const downloadRetries = 3

var downloadRetryDelay = 2 * time.Second

// Object is one listing entry on the remote endpoint. Ephemeral; nothing
// about it is persisted except through the manifest after processing.
type Object struct {
	Name       string
	Size       int64
	ModifiedAt time.Time
}

// Session is an open, authenticated connection positioned in the feed
// directory.
type Session interface {
	List() ([]Object, error)
	// Download fetches a file and verifies it against expectedSize, retrying
	// short transfers a bounded number of times.
	Download(name string, expectedSize int64) ([]byte, error)
	Close() error
}

// Config holds the endpoint coordinates. The servicer's server requires
// encryption before the protocol handshake, so implicit TLS is the default
// (port 990); explicit AUTH TLS is kept for test servers.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Dir         string
	ImplicitTLS bool
	Timeout     time.Duration
}

// Connector opens sessions against the partner endpoint.
type Connector interface {
	Connect() (Session, error)
}

// FTPSConnector is the production Connector.
type FTPSConnector struct {
	cfg Config
}

func NewFTPSConnector(cfg Config) *FTPSConnector {
	if cfg.Port == 0 {
		cfg.Port = 990
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &FTPSConnector{cfg: cfg}
}

// Connect dials, negotiates TLS, authenticates, and changes into the feed
// directory. Connection and auth failures are fatal for the run; the
// external scheduler retries whole runs.
func (c *FTPSConnector) Connect() (Session, error) {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	tlsCfg := &tls.Config{ServerName: c.cfg.Host}

	opts := []ftp.DialOption{ftp.DialWithTimeout(c.cfg.Timeout)}
	if c.cfg.ImplicitTLS {
		opts = append(opts, ftp.DialWithTLS(tlsCfg))
	} else {
		opts = append(opts, ftp.DialWithExplicitTLS(tlsCfg))
	}

	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", addr)
	}
	if err := conn.Login(c.cfg.Username, c.cfg.Password); err != nil {
		conn.Quit()
		return nil, errors.Wrapf(ErrAuth, "login as %s: %v", c.cfg.Username, err)
	}
	if c.cfg.Dir != "" {
		if err := conn.ChangeDir(c.cfg.Dir); err != nil {
			conn.Quit()
			return nil, errors.Wrapf(err, "changing to remote directory %s", c.cfg.Dir)
		}
	}
	return &ftpsSession{conn: conn}, nil
}

type ftpsSession struct {
	conn *ftp.ServerConn
}

func (s *ftpsSession) List() ([]Object, error) {
	entries, err := s.conn.List("")
	if err != nil {
		return nil, errors.Wrap(err, "listing remote directory")
	}
	var out []Object
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		out = append(out, Object{Name: e.Name, Size: int64(e.Size), ModifiedAt: e.Time})
	}
	return out, nil
}

func (s *ftpsSession) Download(name string, expectedSize int64) ([]byte, error) {
	return downloadVerified(s.fetch, name, expectedSize)
}

func (s *ftpsSession) fetch(name string) ([]byte, error) {
	resp, err := s.conn.Retr(name)
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	return io.ReadAll(resp)
}

func (s *ftpsSession) Close() error {
	return s.conn.Quit()
}

// downloadVerified retries a fetch until the byte count matches the listing
// size. A short transfer is transient; after the retry budget it is recorded
// as an error against the filename, not the run.
func downloadVerified(fetch func(string) ([]byte, error), name string, expectedSize int64) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= downloadRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(downloadRetryDelay * time.Duration(attempt))
		}
		data, err := fetch(name)
		if err != nil {
			lastErr = err
			continue
		}
		if expectedSize > 0 && int64(len(data)) != expectedSize {
			lastErr = errors.Errorf("partial download of %s: got %d bytes, want %d", name, len(data), expectedSize)
			continue
		}
		return data, nil
	}
	return nil, errors.Wrapf(lastErr, "downloading %s after %d attempts", name, downloadRetries+1)
}
