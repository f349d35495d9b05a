package sim

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/eyeson-team/gosdk/internal/config"
	"github.com/eyeson-team/gosdk/internal/domain"
)

// SetupRouter wires the REST join endpoints and both websocket channels.
func SetupRouter(cfg *config.Config, reg *Registry, logger *zerolog.Logger) *gin.Engine {
	if cfg.SimMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.SimMode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	api := r.Group("/api")

	api.GET("/rooms/:key", func(c *gin.Context) {
		room := reg.RoomForAccessKey(c.Param("key"))
		user := room.AddUser("owner", "", "", false)
		c.JSON(http.StatusOK, room.Descriptor(c.Request.Host, user, false))
	})

	api.POST("/guests/:token", func(c *gin.Context) {
		token := c.Param("token")
		key, ok := guestRoomKey(token)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown guest token"})
			return
		}
		info, err := domain.NewUserInfo(domain.UserID(c.PostForm("id")), c.PostForm("name"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		room := reg.RoomForAccessKey(key)
		user := room.AddUser(info.Name, string(info.ID), c.PostForm("avatar"), true)
		c.JSON(http.StatusOK, room.Descriptor(c.Request.Host, user, false))
	})

	api.GET("/rooms/:key/users/:id", func(c *gin.Context) {
		room := reg.RoomForAccessKey(c.Param("key"))
		info, ok := room.User(domain.UserID(c.Param("id")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
			return
		}
		c.JSON(http.StatusOK, info)
	})

	meetingCtl := &MeetingWSController{Registry: reg, Logger: logger}
	signalCtl := &SignalWSController{Registry: reg, Logger: logger}

	r.GET("/ws/meeting", meetingCtl.Handle)
	r.GET("/ws/signal", signalCtl.Handle)

	return r
}

// guestRoomKey resolves a guest token to its room's access key. Tokens are
// "guest-<key>".
func guestRoomKey(token string) (string, bool) {
	const prefix = "guest-"
	if len(token) <= len(prefix) || token[:len(prefix)] != prefix {
		return "", false
	}
	return token[len(prefix):], true
}
