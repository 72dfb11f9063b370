package main

import (
	"bufio"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

type Endpoint struct {
	Title       string
	Route       string
	Description string
	Response    string
}

func main() {
	apiDir := "internal/web"
	files, err := os.ReadDir(apiDir)
	if err != nil {
		panic(err)
	}

	var endpoints []Endpoint

	// Regex to match comments
	reTitle := regexp.MustCompile(`// @Title: (.*)`)
	reRoute := regexp.MustCompile(`// @Route: (.*)`)
	reDesc := regexp.MustCompile(`// @Description: (.*)`)
	reResp := regexp.MustCompile(`// @Response: (.*)`)

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".go") {
			continue
		}

		f, err := os.Open(filepath.Join(apiDir, file.Name()))
		if err != nil {
			continue
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		var current Endpoint

		for scanner.Scan() {
			line := scanner.Text()

			if match := reTitle.FindStringSubmatch(line); len(match) > 1 {
				current.Title = strings.TrimSpace(match[1])
			}
			if match := reRoute.FindStringSubmatch(line); len(match) > 1 {
				current.Route = strings.TrimSpace(match[1])
			}
			if match := reDesc.FindStringSubmatch(line); len(match) > 1 {
				current.Description = strings.TrimSpace(match[1])
			}
			if match := reResp.FindStringSubmatch(line); len(match) > 1 {
				current.Response = strings.TrimSpace(match[1])
				// End of block, append and reset
				if current.Title != "" && current.Route != "" {
					endpoints = append(endpoints, current)
					current = Endpoint{}
				}
			}
		}
	}

	generateHTML(endpoints)
}

// generateHTML renders the endpoint list in the same monospace style as the
// dashboard page.
func generateHTML(endpoints []Endpoint) {
	var b strings.Builder
	b.WriteString(`<div style="font-family: monospace; max-width: 64rem; margin: 2rem auto; color: #e8dcc3; background: #14120f; padding: 1rem;">
  <h1 style="color: #e2b714;">xnd API</h1>
  <p style="color: #8d8678;">Generated from the handler annotations in internal/web.</p>
`)

	for _, ep := range endpoints {
		method := strings.Split(ep.Route, " ")[0]
		color := "#e8dcc3"
		switch method {
		case "POST":
			color = "#7fb069"
		case "DELETE":
			color = "#c45b4d"
		}

		fmt.Fprintf(&b, `
  <div style="border: 1px solid #4a443a; border-radius: 4px; padding: 1rem; margin: 1rem 0;">
    <div style="color: %s; font-weight: bold;">%s</div>
    <div style="color: #8d8678; margin-top: 0.3rem;">%s</div>
    <div style="color: #8d8678; margin-top: 0.3rem;">Response: <span style="color: #e8dcc3;">%s</span></div>
  </div>
`,
			color,
			html.EscapeString(ep.Route),
			html.EscapeString(ep.Description),
			html.EscapeString(ep.Response))
	}

	b.WriteString(`</div>
`)

	os.WriteFile("internal/web/api-view.html", []byte(b.String()), 0644)
	fmt.Println("Generated internal/web/api-view.html")
}
