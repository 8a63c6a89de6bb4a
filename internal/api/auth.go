package api

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/errors"
)

// TokenVerifier resolves an opaque bearer token into a verified credential.
// Token formats and signing belong to the authentication collaborator; the
// API trusts only the returned credential fields.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (domain.Credential, error)
}

const credentialKey = "eexam/credential"

func (a *API) authenticate(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		abortWithError(c, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("missing bearer token")))
		return
	}

	cred, err := a.verifier.VerifyToken(c.Request.Context(), token)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Set(credentialKey, cred)
	c.Next()
}

func credential(c *gin.Context) domain.Credential {
	return c.MustGet(credentialKey).(domain.Credential)
}
