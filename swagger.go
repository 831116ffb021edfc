package avatargo

import (
	"net/http"
	"strings"

	"github.com/swaggo/swag"
)

// SwaggerHandler 处理 Swagger UI 请求，文档来自 swag.Register 注册的实例
func SwaggerHandler(instanceName ...string) HandlerFunc {
	return func(c *Context) {
		switch strings.TrimPrefix(c.Param("any"), "/") {
		case "doc.json":
			doc, err := swag.ReadDoc(instanceName...)
			if err != nil {
				c.logger.Errorf("read swagger doc: %v", err)
				c.InternalServerError("swagger doc not registered")
				return
			}
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
		case "", "index.html":
			if c.Param("any") == "" {
				c.Redirect(http.StatusFound, strings.TrimSuffix(c.Path(), "/")+"/index.html")
				return
			}
			c.SendHtml(http.StatusOK, SwaggerIndexHTML)
		default:
			c.NotFound("Not Found")
		}
	}
}

// SwaggerIndexHTML 是 Swagger UI 的 HTML 页面
const SwaggerIndexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Swagger UI</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
    <style>
        html { box-sizing: border-box; overflow-y: scroll; }
        *, *:before, *:after { box-sizing: inherit; }
        body { margin: 0; background: #fafafa; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-standalone-preset.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: "doc.json",
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis, SwaggerUIStandalonePreset],
                plugins: [SwaggerUIBundle.plugins.DownloadUrl],
                layout: "StandaloneLayout"
            });
        };
    </script>
</body>
</html>`
