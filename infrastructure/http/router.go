// Package http exposes the read-only query surface of the messenger. Every
// mutation goes through the websocket gateway; this router only mirrors the
// queries so that web clients can render without holding a socket open.
package http

import (
	"log/slog"
	"net/http"

	"messenger/auth"
	"messenger/errors"
	"messenger/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Router struct {
	directs services.IDirectChatService
	groups  services.IGroupChatService
	log     *slog.Logger
}

// NewRouter assembles the gin engine: CORS, auth middleware, the query
// routes and the websocket endpoint supplied by the caller.
func NewRouter(
	directs services.IDirectChatService,
	groups services.IGroupChatService,
	tokens *auth.Tokens,
	wsHandler gin.HandlerFunc,
	log *slog.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET"},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
	}))

	r := &Router{directs: directs, groups: groups, log: log}

	router.GET("/ws", wsHandler)
	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	authenticated := router.Group("/", Authenticated(tokens))

	direct := authenticated.Group("/directs")
	{
		direct.GET("", r.directChats)
		direct.GET("/:partnerId", r.directChat)
		direct.GET("/:partnerId/messages", r.directMessages)
		direct.GET("/:partnerId/attached/images", r.directImages)
		direct.GET("/:partnerId/attached/audios", r.directAudios)
		direct.GET("/:partnerId/attached/files", r.directFiles)
	}

	group := authenticated.Group("/groups")
	{
		group.GET("", r.groupChats)
		group.GET("/:chatId", r.groupChat)
		group.GET("/:chatId/members", r.groupMembers)
		group.GET("/:chatId/messages", r.groupMessages)
		group.GET("/:chatId/attached/images", r.groupImages)
		group.GET("/:chatId/attached/audios", r.groupAudios)
		group.GET("/:chatId/attached/files", r.groupFiles)
	}

	return router
}

func (r *Router) directChats(c *gin.Context) {
	result, err := r.directs.GetChats(c.Request.Context(), callerID(c))
	r.reply(c, result, err)
}

func (r *Router) directChat(c *gin.Context) {
	partnerID, ok := pathID(c, "partnerId")
	if !ok {
		return
	}
	result, err := r.directs.GetChat(c.Request.Context(), callerID(c), partnerID)
	r.reply(c, result, err)
}

func (r *Router) directMessages(c *gin.Context) {
	partnerID, ok := pathID(c, "partnerId")
	if !ok {
		return
	}
	result, err := r.directs.GetMessages(c.Request.Context(), callerID(c), partnerID, skipParam(c))
	r.reply(c, result, err)
}

func (r *Router) directImages(c *gin.Context) {
	partnerID, ok := pathID(c, "partnerId")
	if !ok {
		return
	}
	result, err := r.directs.GetImages(c.Request.Context(), callerID(c), partnerID, skipParam(c))
	r.reply(c, result, err)
}

func (r *Router) directAudios(c *gin.Context) {
	partnerID, ok := pathID(c, "partnerId")
	if !ok {
		return
	}
	result, err := r.directs.GetAudios(c.Request.Context(), callerID(c), partnerID, skipParam(c))
	r.reply(c, result, err)
}

func (r *Router) directFiles(c *gin.Context) {
	partnerID, ok := pathID(c, "partnerId")
	if !ok {
		return
	}
	result, err := r.directs.GetFiles(c.Request.Context(), callerID(c), partnerID, skipParam(c))
	r.reply(c, result, err)
}

func (r *Router) groupChats(c *gin.Context) {
	result, err := r.groups.GetChats(c.Request.Context(), callerID(c))
	r.reply(c, result, err)
}

func (r *Router) groupChat(c *gin.Context) {
	chatID, ok := pathID(c, "chatId")
	if !ok {
		return
	}
	result, err := r.groups.GetChat(c.Request.Context(), callerID(c), chatID)
	r.reply(c, result, err)
}

func (r *Router) groupMembers(c *gin.Context) {
	chatID, ok := pathID(c, "chatId")
	if !ok {
		return
	}
	result, err := r.groups.GetMembers(c.Request.Context(), callerID(c), chatID)
	r.reply(c, result, err)
}

func (r *Router) groupMessages(c *gin.Context) {
	chatID, ok := pathID(c, "chatId")
	if !ok {
		return
	}
	result, err := r.groups.GetMessages(c.Request.Context(), callerID(c), chatID, skipParam(c))
	r.reply(c, result, err)
}

func (r *Router) groupImages(c *gin.Context) {
	chatID, ok := pathID(c, "chatId")
	if !ok {
		return
	}
	result, err := r.groups.GetImages(c.Request.Context(), callerID(c), chatID, skipParam(c))
	r.reply(c, result, err)
}

func (r *Router) groupAudios(c *gin.Context) {
	chatID, ok := pathID(c, "chatId")
	if !ok {
		return
	}
	result, err := r.groups.GetAudios(c.Request.Context(), callerID(c), chatID, skipParam(c))
	r.reply(c, result, err)
}

func (r *Router) groupFiles(c *gin.Context) {
	chatID, ok := pathID(c, "chatId")
	if !ok {
		return
	}
	result, err := r.groups.GetFiles(c.Request.Context(), callerID(c), chatID, skipParam(c))
	r.reply(c, result, err)
}

func (r *Router) reply(c *gin.Context, result any, err error) {
	if err != nil {
		r.log.Debug("query failed",
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()))
		c.JSON(errors.HTTPStatus(err), gin.H{"error": errors.ClientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, result)
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func skipParam(c *gin.Context) int {
	var query struct {
		Skip int `form:"skip"`
	}
	if err := c.ShouldBindQuery(&query); err != nil || query.Skip < 0 {
		return 0
	}
	return query.Skip
}
