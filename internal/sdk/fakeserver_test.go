package sdk

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// fakeServer is a minimal media server for SDK tests
type fakeServer struct {
	*httptest.Server
	info  PublicSystemInfo
	token string

	mu       sync.Mutex
	lastAuth string
}

func (fs *fakeServer) recordAuth(c *gin.Context) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.lastAuth = c.GetHeader("Authorization")
	return fs.lastAuth
}

// LastAuthorization returns the Authorization header of the last request
func (fs *fakeServer) LastAuthorization() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.lastAuth
}

func newFakeServer(t *testing.T, info PublicSystemInfo, token string) *fakeServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fs := &fakeServer{info: info, token: token}
	router := gin.New()

	router.GET("/System/Info/Public", func(c *gin.Context) {
		fs.recordAuth(c)
		c.JSON(http.StatusOK, fs.info)
	})
	router.GET("/Users/Me", func(c *gin.Context) {
		if !strings.Contains(fs.recordAuth(c), `Token="`+fs.token+`"`) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.JSON(http.StatusOK, User{ID: "user-1", Name: "alice", ServerID: fs.info.ID})
	})
	router.POST("/Users/AuthenticateByName", func(c *gin.Context) {
		var body struct {
			Username string `json:"Username"`
			Pw       string `json:"Pw"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.Username != "alice" || body.Pw != "secret" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, AuthenticationResult{
			User:        &User{ID: "user-1", Name: "alice"},
			AccessToken: fs.token,
			ServerID:    fs.info.ID,
		})
	})
	router.POST("/Sessions/Logout", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	fs.Server = httptest.NewServer(router)
	t.Cleanup(fs.Close)
	return fs
}
