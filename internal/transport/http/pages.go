package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

var landingPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8" />
<meta name="viewport" content="width=device-width, initial-scale=1.0" />
<title>Roomy</title>
<style>
body { font-family: -apple-system, Arial, sans-serif; margin: 0; background: linear-gradient(135deg,#ff7a59,#ffb347); color: #fff; min-height: 100vh; display: flex; flex-direction: column; }
header { flex: 1; padding: 80px 20px; text-align: center; }
h1 { font-size: 40px; margin-bottom: 8px; }
p { font-size: 18px; opacity: 0.9; }
a.button { display: inline-block; margin-top: 24px; padding: 12px 28px; border-radius: 6px; background: rgba(255,255,255,0.2); color: #fff; text-decoration: none; }
a.button:hover { background: rgba(255,255,255,0.4); }
footer { text-align: center; padding: 20px; font-size: 14px; opacity: 0.8; }
</style>
</head>
<body>
<header>
  <h1>Roomy</h1>
  <p>Turn your Airbnb listing into a beautiful guest guidebook in minutes.</p>
  <a class="button" href="/swagger/index.html">API documentation</a>
</header>
<footer>Roomy guidebook API</footer>
</body>
</html>`

func RegisterPages(e *echo.Echo, dashboardURL string) {
	e.GET("/", func(c echo.Context) error {
		return c.HTML(http.StatusOK, landingPageHTML)
	})

	e.GET("/dashboard", func(c echo.Context) error {
		if dashboardURL != "" {
			return c.Redirect(http.StatusTemporaryRedirect, dashboardURL)
		}
		return c.HTML(http.StatusOK, "<h1>Roomy</h1><p>Point DASHBOARD_URL at your host dashboard.</p>")
	})
}
