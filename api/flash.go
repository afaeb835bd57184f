package api

import (
	"encoding/base64"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"taskhive/view"
)

const flashCookie = "flash"

func setFlash(c echo.Context, kind, message string) {
	data, err := sonic.Marshal(view.Flash{Kind: kind, Message: message})
	if err != nil {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending notification, if any, and clears it.
func popFlash(c echo.Context) *view.Flash {
	ck, err := c.Cookie(flashCookie)
	if err != nil || ck.Value == "" {
		return nil
	}
	c.SetCookie(&http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	data, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return nil
	}
	var f view.Flash
	if err := sonic.Unmarshal(data, &f); err != nil || f.Message == "" {
		return nil
	}
	if f.Kind != view.FlashSuccess {
		f.Kind = view.FlashError
	}
	return &f
}
