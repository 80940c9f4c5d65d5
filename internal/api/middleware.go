package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// authRealm 浏览器弹出登录框时显示的域
const authRealm = "BlogCrosspost"

// BasicAuth 要求渲染和站点管理接口带上固定的用户名密码；健康检查路径放行
func BasicAuth(user, pass string) gin.HandlerFunc {
	wantUser, wantPass := []byte(user), []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		// 两项都比较完再判断，避免通过耗时区分是哪一项错了
		userOK := subtle.ConstantTimeCompare([]byte(u), wantUser) == 1
		passOK := subtle.ConstantTimeCompare([]byte(p), wantPass) == 1
		if !ok || !userOK || !passOK {
			c.Header("WWW-Authenticate", `Basic realm="`+authRealm+`"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "authentication required",
			})
			return
		}
		c.Next()
	}
}
