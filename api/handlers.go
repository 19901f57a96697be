package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleInitiate(c *gin.Context) {
	var req uploadtypes.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError("initiate", err))
		return
	}

	res, err := s.svc.Initiate(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleAuthorize(c *gin.Context) {
	var req uploadtypes.AuthorizePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError("authorizePart", err))
		return
	}

	res, err := s.svc.AuthorizePart(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleComplete(c *gin.Context) {
	var req uploadtypes.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError("complete", err))
		return
	}

	res, err := s.svc.Complete(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleAbort(c *gin.Context) {
	var req uploadtypes.AbortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError("abort", err))
		return
	}

	res, err := s.svc.Abort(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleExists(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		s.writeError(c, uperrors.NewError("objectExists", uperrors.ErrInvalidKey).
			WithMessage("missing key query parameter"))
		return
	}

	exists, err := s.svc.ObjectExists(c.Request.Context(), key)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, uploadtypes.ExistsResult{Key: key, Exists: exists})
}
