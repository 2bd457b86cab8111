// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"net/http"
)

// # Dashboard Pages
//
// The dashboard frontend is a separate SPA bundle served from /assets in
// production builds. These handlers render the minimal HTML shells that
// boot it. Both routes sit behind the page gateway.

const dashboardShell = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Redisboard</title></head>
<body><div id="app" data-page="dashboard"></div><script src="/assets/app.js"></script></body>
</html>`

const loginShell = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Redisboard — Sign in</title></head>
<body><div id="app" data-page="login"></div><script src="/assets/app.js"></script></body>
</html>`

// DashboardPage handles GET / — the protected dashboard shell.
func DashboardPage(writer http.ResponseWriter, request *http.Request) {
	writeHTML(writer, dashboardShell)
}

// LoginPage handles GET /login — the auth-only login shell.
func LoginPage(writer http.ResponseWriter, request *http.Request) {
	writeHTML(writer, loginShell)
}

func writeHTML(writer http.ResponseWriter, body string) {
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write([]byte(body))
}
