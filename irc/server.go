package irc

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/andrzejkrzywda/ircd/irc/config"
)

// Version identifies this server software in the welcome burst,
// VERSION replies and the connect notice.
const Version = "goircd-0.4"

// Mode letters advertised in RPL_MYINFO. Only the operator mark is
// actually tracked; the rest exist so mode-probing clients settle down.
const (
	UserModes    = "aAbBcCdDeEfFGhHiIjkKlLmMnNopPQrRsStUvVwWxXyYzZ0123459*@"
	ChannelModes = "bcdefFhiIklmnoPqstv"
)

// Server owns the listeners, the user and channel directories and the
// keepalive pinger. One Server instance serves both the plain and the
// TLS listener.
type Server struct {
	config      *config.Config
	users       *UserStore
	channels    *ChannelStore
	metrics     *Metrics
	listener    net.Listener
	tlsListener net.Listener
	tlsConfig   *tls.Config
	startTime   time.Time
	shutdown    chan struct{}
}

// NewServer creates a server around cfg. Nothing listens until Start.
func NewServer(cfg *config.Config) *Server {
	return &Server{
		config:    cfg,
		users:     NewUserStore(),
		channels:  NewChannelStore(),
		metrics:   NewMetrics(),
		startTime: time.Now(),
		shutdown:  make(chan struct{}),
	}
}

// Name returns the server name used as the source of numeric replies.
func (s *Server) Name() string {
	return s.config.Server.Name
}

// Users returns the user directory.
func (s *Server) Users() *UserStore {
	return s.users
}

// Channels returns the channel directory.
func (s *Server) Channels() *ChannelStore {
	return s.channels
}

// Metrics returns the server's metric set.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// StartTime returns when this server instance was created.
func (s *Server) StartTime() time.Time {
	return s.startTime
}

// Addr returns the bound address of the plain listener, or "" before
// Start. Tests bind port 0 and read the port back from here.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start starts all components of the server. If a later component
// fails, the ones already started are stopped again.
func (s *Server) Start() error {
	if err := s.StartIRCServer(); err != nil {
		return err
	}
	if err := s.StartTLSServer(); err != nil {
		s.StopIRCServer()
		return err
	}
	go s.keepalive()
	return nil
}

// StartIRCServer starts only the plain-TCP listener component.
func (s *Server) StartIRCServer() error {
	if s.listener != nil {
		return nil
	}

	var err error
	s.listener, err = net.Listen("tcp", s.config.ListenAddr())
	if err != nil {
		return fmt.Errorf("failed to start IRC listener: %w", err)
	}
	log.Printf("IRC server started on %s", s.listener.Addr().String())

	go s.acceptConnections(s.listener)
	return nil
}

// StopIRCServer stops only the plain-TCP listener component.
func (s *Server) StopIRCServer() error {
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			return fmt.Errorf("error closing IRC listener: %w", err)
		}
		s.listener = nil
		log.Printf("IRC server stopped")
	}
	return nil
}

// StartTLSServer starts the TLS listener component. Without a
// configured bind address this is a no-op; without a configured
// certificate a self-signed one is generated.
func (s *Server) StartTLSServer() error {
	if s.tlsListener != nil {
		return nil
	}
	if !s.config.TLS.Enabled {
		return nil
	}

	var tlsConfig *tls.Config
	if s.config.TLS.CertFile != "" && s.config.TLS.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(s.config.TLS.CertFile, s.config.TLS.KeyFile)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		log.Printf("using TLS certificate from %s", s.config.TLS.CertFile)
	} else {
		log.Println("no TLS certificate provided, generating a self-signed certificate")
		cert, err := s.generateSelfSignedCert()
		if err != nil {
			return fmt.Errorf("failed to generate self-signed certificate: %w", err)
		}
		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{*cert},
			MinVersion:   tls.VersionTLS12,
		}
		if s.config.TLS.SaveGenerated {
			s.saveGeneratedCert(cert)
		}
	}
	s.tlsConfig = tlsConfig

	var err error
	s.tlsListener, err = tls.Listen("tcp", s.config.TLSListenAddr(), tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to start TLS listener: %w", err)
	}
	log.Printf("TLS IRC server started on %s", s.tlsListener.Addr().String())

	go s.acceptConnections(s.tlsListener)
	return nil
}

// StopTLSServer stops the TLS listener component.
func (s *Server) StopTLSServer() error {
	if s.tlsListener != nil {
		err := s.tlsListener.Close()
		s.tlsListener = nil
		if err != nil {
			return fmt.Errorf("failed to stop TLS listener: %w", err)
		}
		log.Println("TLS IRC server stopped")
	}
	return nil
}

// Stop stops the listeners, the pinger and every connected session.
func (s *Server) Stop() error {
	log.Printf("stopping IRC server...")
	close(s.shutdown)

	s.users.EachUser(func(c *Client) {
		c.Quit("Server shutting down")
	})

	var errs []error
	if err := s.StopIRCServer(); err != nil {
		errs = append(errs, err)
	}
	if err := s.StopTLSServer(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	log.Printf("IRC server completely stopped")
	return nil
}

// acceptConnections accepts sessions from l until the listener closes.
// Transient accept errors (fd pressure, aborted handshakes) are logged
// and the loop keeps serving.
func (s *Server) acceptConnections(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("error accepting connection: %v", err)
			continue
		}
		s.metrics.connections.Inc()
		client := newClient(conn, s)
		go client.handleConnection()
	}
}

// keepalive pings every connected session on a fixed interval. A dead
// peer fails the ping write and is torn down by its own session.
func (s *Server) keepalive() {
	ticker := time.NewTicker(s.config.KeepaliveInterval())
	defer ticker.Stop()
	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.users.EachUser(func(c *Client) {
				c.sendPing()
			})
		}
	}
}

// dispatch routes one inbound line through the grammar table. An
// optional ":source " prefix is stripped first; a line matching no
// grammar draws ERR_UNKNOWNCOMMAND.
func (s *Server) dispatch(c *Client, line string) {
	if s.config.Debug {
		log.Printf("[%s] <= %s", c.Host(), line)
	}
	s.metrics.linesIn.Inc()

	if m := prefixPattern.FindStringSubmatch(line); m != nil {
		line = m[1]
	}
	if blankPattern.MatchString(line) {
		return
	}

	for _, g := range grammars {
		if m := g.pattern.FindStringSubmatch(line); m != nil {
			g.run(c, m)
			return
		}
	}
	c.handleUnknown(line)
}

// pruneChannel drops the named channel once its last member leaves.
// With auto-prune disabled, empty channels persist with their topic.
func (s *Server) pruneChannel(name string) {
	if !s.config.Channels.AutoPrune {
		return
	}
	s.channels.Remove(name)
}

// NoticeChannel delivers a server-originated NOTICE to every member of
// the named channel. The admin API relays announcements through this.
func (s *Server) NoticeChannel(name, text string) bool {
	ch, ok := s.channels.Get(name)
	if !ok {
		return false
	}
	notice := NoticeReply{Prefix: ":" + s.Name(), Target: name, Text: text}
	ch.EachMember(func(m *Client) {
		m.Send(notice)
	})
	return true
}

// generateSelfSignedCert generates a throwaway RSA certificate for the
// TLS listener when none is configured.
func (s *Server) generateSelfSignedCert() (*tls.Certificate, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	notBefore := time.Now()
	notAfter := notBefore.Add(365 * 24 * time.Hour)

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"ircd"},
			CommonName:   s.config.Server.Name,
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{s.config.Server.Name},
	}
	if ip := net.ParseIP(s.config.Server.Host); ip != nil {
		template.IPAddresses = append(template.IPAddresses, ip)
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{derBytes},
		PrivateKey:  privateKey,
	}, nil
}

// saveGeneratedCert writes the generated certificate and key to the
// configured paths so restarts present a stable identity.
func (s *Server) saveGeneratedCert(cert *tls.Certificate) {
	certPath := s.config.TLS.GeneratedCertPath
	keyPath := s.config.TLS.GeneratedKeyPath
	if err := os.MkdirAll(filepath.Dir(certPath), 0755); err != nil {
		log.Printf("failed to create certificate directory: %v", err)
		return
	}

	certOut, err := os.Create(certPath)
	if err == nil {
		pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate[0]})
		certOut.Close()
		log.Printf("self-signed certificate saved to %s", certPath)
	}

	keyOut, err := os.OpenFile(keyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err == nil {
		privateKey := cert.PrivateKey.(*rsa.PrivateKey)
		pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)})
		keyOut.Close()
		log.Printf("private key saved to %s", keyPath)
	}
}
