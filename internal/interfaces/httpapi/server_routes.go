package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/season", handler.GetCurrentSeason)
	mux.HandleFunc("GET /v1/season/settings", handler.GetSeasonSettings)
	mux.HandleFunc("GET /v1/season/history", handler.ListSeasonHistory)
	mux.HandleFunc("GET /v1/season/history/{number}", handler.GetSeasonHistory)
	mux.HandleFunc("GET /v1/canvas", handler.GetCanvas)
	mux.HandleFunc("GET /v1/canvas/updates", handler.GetCanvasUpdates)
	mux.HandleFunc("GET /v1/canvas/pixels/{x}/{y}", handler.GetPixel)
	mux.HandleFunc("GET /v1/zones", handler.ListZones)
	mux.HandleFunc("GET /v1/leaderboard", handler.GetLeaderboard)
	mux.HandleFunc("GET /v1/teams", handler.ListTeams)
}

func registerPlayerRoutes(mux *http.ServeMux, handler *Handler) {
	mux.Handle("POST /v1/canvas/pixels", RequireUser(http.HandlerFunc(handler.PlacePixel)))
	mux.Handle("GET /v1/me/credits", RequireUser(http.HandlerFunc(handler.GetMyCredits)))
	mux.Handle("GET /v1/me/team", RequireUser(http.HandlerFunc(handler.GetMyTeam)))
	mux.Handle("GET /v1/me/rank", RequireUser(http.HandlerFunc(handler.GetMyRank)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("PATCH /v1/internal/season/settings", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.UpdateSeasonSettings)))
	mux.Handle("POST /v1/internal/jobs/season-end", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSeasonEndJob)))
	mux.Handle("POST /v1/internal/jobs/warning", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunWarningJob)))
	mux.Handle("GET /v1/internal/failed-posts", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ListFailedPosts)))
	mux.Handle("DELETE /v1/internal/failed-posts", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ClearFailedPosts)))
}
