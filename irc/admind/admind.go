// Package admind exposes a small REST API over the running IRC server:
// read-only views of users and channels, a channel announcement relay
// and the Prometheus metrics endpoint. Requests authenticate with
// configured bearer tokens.
package admind

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andrzejkrzywda/ircd/irc"
	"github.com/andrzejkrzywda/ircd/irc/config"
)

// Server is the admin HTTP server around a running irc.Server.
type Server struct {
	irc    *irc.Server
	config *config.Config
	echo   *echo.Echo
}

// New creates the admin server and wires its routes.
func New(ircServer *irc.Server, cfg *config.Config) *Server {
	s := &Server{
		irc:    ircServer,
		config: cfg,
		echo:   echo.New(),
	}
	s.echo.HideBanner = true

	s.echo.GET("/api/status", s.handleStatus)
	s.echo.GET("/api/users", s.handleUsers)
	s.echo.GET("/api/channels", s.handleChannels)
	s.echo.POST("/api/notice", s.handleNotice)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
		ircServer.Metrics().Registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)))

	return s
}

// Start starts the admin HTTP listener. Blocks until the listener
// closes.
func (s *Server) Start() error {
	return s.echo.Start(s.config.AdminListenAddr())
}

// Stop stops the admin HTTP listener.
func (s *Server) Stop() error {
	log.Println("stopping admin API")
	return s.echo.Close()
}

// UserInfo is the JSON view of one connected session.
type UserInfo struct {
	Nick     string   `json:"nick"`
	Username string   `json:"username"`
	Realname string   `json:"realname"`
	Host     string   `json:"host"`
	Away     string   `json:"away,omitempty"`
	Channels []string `json:"channels"`
}

// ChannelInfo is the JSON view of one channel.
type ChannelInfo struct {
	Name  string   `json:"name"`
	Topic string   `json:"topic"`
	Users int      `json:"users"`
	Nicks []string `json:"nicks"`
}

// NoticeRequest asks the server to announce text in a channel.
type NoticeRequest struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// StatusInfo is the JSON view of the server's identity and load.
type StatusInfo struct {
	Name     string    `json:"name"`
	Version  string    `json:"version"`
	Started  time.Time `json:"started"`
	Uptime   string    `json:"uptime"`
	Users    int       `json:"users"`
	Channels int       `json:"channels"`
}

func (s *Server) handleStatus(c echo.Context) error {
	if !s.authenticate(c.Request()) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	started := s.irc.StartTime()
	return c.JSON(http.StatusOK, StatusInfo{
		Name:     s.irc.Name(),
		Version:  irc.Version,
		Started:  started.UTC(),
		Uptime:   time.Since(started).Round(time.Second).String(),
		Users:    s.irc.Users().Len(),
		Channels: s.irc.Channels().Len(),
	})
}

func (s *Server) handleUsers(c echo.Context) error {
	if !s.authenticate(c.Request()) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	users := make([]UserInfo, 0)
	s.irc.Users().EachUser(func(u *irc.Client) {
		users = append(users, UserInfo{
			Nick:     u.Nick(),
			Username: u.User(),
			Realname: u.Realname(),
			Host:     u.Host(),
			Away:     u.Away(),
			Channels: u.Channels(),
		})
	})
	return c.JSON(http.StatusOK, users)
}

func (s *Server) handleChannels(c echo.Context) error {
	if !s.authenticate(c.Request()) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	channels := make([]ChannelInfo, 0)
	s.irc.Channels().EachChannel(func(ch *irc.Channel) {
		channels = append(channels, ChannelInfo{
			Name:  ch.Name(),
			Topic: ch.Topic(),
			Users: ch.Len(),
			Nicks: ch.Nicks(),
		})
	})
	return c.JSON(http.StatusOK, channels)
}

func (s *Server) handleNotice(c echo.Context) error {
	if !s.authenticate(c.Request()) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	var req NoticeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Bad request")
	}
	if req.Channel == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Channel and message are required")
	}

	if !s.irc.NoticeChannel(req.Channel, req.Message) {
		return echo.NewHTTPError(http.StatusNotFound, "Channel not found")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"sent":    time.Now().UTC(),
	})
}

// authenticate checks the request's bearer token against the
// configured token list.
func (s *Server) authenticate(req *http.Request) bool {
	authHeader := req.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	for _, validToken := range s.config.Admin.BearerTokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(validToken)) == 1 {
			return true
		}
	}
	return false
}
