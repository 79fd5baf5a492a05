package server

import (
	_ "embed"
	"html/template"

	"github.com/rvilla/marks-front/internal/storage"
)

//go:embed templates/login.html
var loginPageTemplateHTML string

//go:embed templates/home.html
var homePageTemplateHTML string

//go:embed templates/share_result.html
var shareResultTemplateHTML string

var loginPageTemplate = template.Must(template.New("login").Parse(loginPageTemplateHTML))
var homePageTemplate = template.Must(template.New("home").Parse(homePageTemplateHTML))
var shareResultTemplate = template.Must(template.New("share_result").Parse(shareResultTemplateHTML))

// LoginPageData represents the data for the login page
type LoginPageData struct {
	Redirect    string
	ShareURL    string
	ShareTitle  string
	ShareText   string
	OAuthURL    string
	Email       string
	Message     string
	MessageType string // "success" or "error"
}

// HomePageData represents the data for the home view
type HomePageData struct {
	Email     string
	Bookmarks []storage.Bookmark
	Added     bool
	ErrorMsg  string
}

// ShareResultData represents a terminal share-intake view
type ShareResultData struct {
	Heading string
	Detail  string
}
