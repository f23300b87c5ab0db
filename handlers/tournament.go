package handlers

import (
	"game-economy-service/middleware"
	"game-economy-service/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type scoreRequest struct {
	Score *int64 `json:"score"`
}

func SetupTournamentRoutes(app fiber.Router, tournamentService *services.TournamentService, auth fiber.Handler, log *zap.Logger) {
	log = log.Named("http.tournament")

	// 🔓 Public: listings and leaderboards
	app.Get("/tournaments/open", func(c *fiber.Ctx) error {
		ts, err := tournamentService.ListOpen(c.UserContext())
		if err != nil {
			return fail(c, log, err)
		}
		return c.JSON(fiber.Map{"tournaments": ts})
	})

	// Reads never create; the first join opens a window.
	app.Get("/tournaments/:window", func(c *fiber.Ctx) error {
		t, err := tournamentService.Find(c.UserContext(), c.Params("window"))
		if err != nil {
			return fail(c, log, err)
		}
		return c.JSON(t)
	})

	app.Get("/tournaments/:window/leaderboard", func(c *fiber.Ctx) error {
		t, err := tournamentService.Find(c.UserContext(), c.Params("window"))
		if err != nil {
			return fail(c, log, err)
		}
		rows, err := tournamentService.Leaderboard(c.UserContext(), t)
		if err != nil {
			return fail(c, log, err)
		}
		return c.JSON(fiber.Map{"tournament_id": t.ID, "rows": rows})
	})

	// 🔐 Player routes
	secured := app.Group("/tournaments", auth)

	secured.Post("/:window/join", func(c *fiber.Ctx) error {
		t, err := tournamentService.GetOrCreate(c.UserContext(), c.Params("window"))
		if err != nil {
			return fail(c, log, err)
		}
		res, err := tournamentService.Join(c.UserContext(), middleware.UserID(c), t)
		if err != nil {
			return fail(c, log, err)
		}
		return c.JSON(res)
	})

	secured.Post("/:window/score", func(c *fiber.Ctx) error {
		var req scoreRequest
		if err := c.BodyParser(&req); err != nil || req.Score == nil {
			return badRequest(c, "score is required")
		}
		res, err := tournamentService.SubmitWindowScore(c.UserContext(), middleware.UserID(c), c.Params("window"), *req.Score)
		if err != nil {
			return fail(c, log, err)
		}
		return c.JSON(res)
	})
}
