package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itohio/rctrl/pkg/remote"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Health describes the service.
type Health struct {
	Uptime       string `json:"uptime"`
	Connections  int64  `json:"connections"`
	Relayed      uint64 `json:"relayed"`
	Dropped      uint64 `json:"dropped"`
	FrameVersion uint64 `json:"frame_version"`
}

func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Status: "success",
		Data: Health{
			Uptime:       time.Since(s.started).Round(time.Second).String(),
			Connections:  s.connections.Load(),
			Relayed:      s.relayed.Load(),
			Dropped:      s.dropped.Load(),
			FrameVersion: s.latest.Version(),
		},
	})
}

func (s *Service) handleFrame(c *gin.Context) {
	frame, version, _ := s.latest.Load()
	if version == 0 {
		c.JSON(http.StatusNotFound, Response{
			Status: "error",
			Error:  "no frame published yet",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   frame,
	})
}

func (s *Service) handleCommand(c *gin.Context) {
	cmd, err := remote.ParseCommand(c.Param("command"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Status: "error",
			Error:  err.Error(),
		})
		return
	}

	if !s.relay(cmd) {
		c.JSON(http.StatusServiceUnavailable, Response{
			Status: "error",
			Error:  "command queue full",
		})
		return
	}

	c.JSON(http.StatusAccepted, Response{
		Status:  "success",
		Message: cmd.String() + " queued",
	})
}
