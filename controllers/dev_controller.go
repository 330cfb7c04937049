// controllers/dev_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type DevController struct {
	Conv ConversationHandler
}

func NewDevController(conv ConversationHandler) *DevController {
	return &DevController{Conv: conv}
}

type simulateReq struct {
	Phone string `json:"phone"`
	Body  string `json:"body"`
}

// SimulateInbound runs a message through the full conversation stack and
// returns the reply in the response instead of texting it back. Saves SMS
// credits while poking at the flows.
//
// POST /dev/simulate-inbound
func (d *DevController) SimulateInbound(c *gin.Context) {
	var req simulateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone required"})
		return
	}

	reply := d.Conv.HandleInbound(c.Request.Context(), req.Phone, req.Body)
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
