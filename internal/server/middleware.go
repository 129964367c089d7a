package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/creatorctx"
	"github.com/gin-gonic/gin"
)

// HeaderCreator names the acting creator. Authentication proper lives in
// front of this service; the header carries the already-resolved identity.
const HeaderCreator = "X-Creator-ID"

// CreatorRequired resolves the acting creator and stores it in the request
// context. Requests without a known creator never reach a handler.
func (s *Server) CreatorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderCreator))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		creator, err := s.creatorStore.FindByID(c.Request.Context(), id)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if creator == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := creatorctx.WithCreatorID(c.Request.Context(), int64(creator.ID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) actingCreatorID(c *gin.Context) (snowflake.ID, bool) {
	id, ok := creatorctx.CreatorIDFromContext(c.Request.Context())
	if !ok {
		return 0, false
	}
	return snowflake.ID(id), true
}
