package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
)

// ICEServers hands clients the STUN/TURN list they should construct their
// peer connections with. The relay itself never opens a peer connection.
func (h *Handlers) ICEServers(c *gin.Context) {
	servers := make([]webrtc.ICEServer, 0, 2)
	if len(h.Cfg.STUNURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: h.Cfg.STUNURLs})
	}
	if h.Cfg.TURNURL != "" {
		servers = append(servers, webrtc.ICEServer{
			URLs:       []string{h.Cfg.TURNURL},
			Username:   h.Cfg.TURNUsername,
			Credential: h.Cfg.TURNCredential,
		})
	}
	c.JSON(http.StatusOK, gin.H{"iceServers": servers})
}
