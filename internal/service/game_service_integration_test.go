package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/internal/service"
	"github.com/Baaaki/gameshelf/internal/testutil"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"github.com/stretchr/testify/suite"
)

type GameServiceIntegrationTestSuite struct {
	suite.Suite
	testDB      *testutil.TestDatabase
	gameService *service.GameService
	loanService *service.LoanService
	ctx         context.Context

	owner *models.User
	other *models.User
	admin *models.User
}

func (s *GameServiceIntegrationTestSuite) SetupSuite() {
	logger.Init(false)
	s.testDB = testutil.SetupTestDatabase(s.T())
	s.gameService = service.NewGameService(s.testDB.DB)
	s.loanService = service.NewLoanService(s.testDB.DB, nil, nil)
	s.ctx = context.Background()
}

func (s *GameServiceIntegrationTestSuite) TearDownSuite() {
	s.testDB.Teardown(s.T())
}

func (s *GameServiceIntegrationTestSuite) SetupTest() {
	testutil.CleanDatabase(s.T(), s.testDB.DB)
	s.owner = testutil.CreateTestUser(s.T(), s.testDB.DB, "owner")
	s.other = testutil.CreateTestUser(s.T(), s.testDB.DB, "other")
	s.admin = testutil.CreateTestUser(s.T(), s.testDB.DB, "admin", models.RoleUser, models.RoleAdmin)
}

func (s *GameServiceIntegrationTestSuite) lend(game *models.Game) {
	_, err := s.loanService.Create(s.ctx, testutil.PrincipalOf(s.owner), service.LoanInput{
		GameID:             game.ID,
		BorrowerID:         s.other.ID,
		ExpectedReturnDate: time.Now().Add(24 * time.Hour),
	})
	s.Require().NoError(err)
}

func (s *GameServiceIntegrationTestSuite) TestCreate() {
	game, err := s.gameService.Create(s.ctx, testutil.PrincipalOf(s.owner), service.GameInput{
		Title:    "  Chrono Trigger ",
		Platform: "SNES",
		Genre:    "RPG",
	})

	s.Require().NoError(err)
	s.Equal("Chrono Trigger", game.Title)
	s.Equal(models.GameAvailable, game.Status)
	s.Equal(s.owner.ID, game.OwnerID)
	s.False(game.IsCatalog)
}

func (s *GameServiceIntegrationTestSuite) TestCreate_Rules() {
	_, err := s.gameService.Create(s.ctx, testutil.PrincipalOf(s.owner), service.GameInput{Title: "X", Catalog: true})
	s.Equal(apperror.CodeForbidden, apperror.CodeOf(err))

	_, err = s.gameService.Create(s.ctx, testutil.PrincipalOf(s.owner), service.GameInput{Title: "X", Status: models.GameBorrowed})
	s.Equal(apperror.CodeInvalid, apperror.CodeOf(err))

	game, err := s.gameService.Create(s.ctx, testutil.PrincipalOf(s.admin), service.GameInput{Title: "Catalog", Catalog: true})
	s.Require().NoError(err)
	s.True(game.IsCatalog)
}

func (s *GameServiceIntegrationTestSuite) TestUpdate_StatusRules() {
	game := testutil.CreateTestGame(s.T(), s.testDB.DB, s.owner, "Earthbound")

	updated, err := s.gameService.Update(s.ctx, testutil.PrincipalOf(s.owner), game.ID, service.GameInput{
		Title: "EarthBound", Platform: "SNES", Status: models.GameUnavailable,
	})
	s.Require().NoError(err)
	s.Equal("EarthBound", updated.Title)
	s.Equal(models.GameUnavailable, updated.Status)

	_, err = s.gameService.Update(s.ctx, testutil.PrincipalOf(s.other), game.ID, service.GameInput{Title: "Mine now"})
	s.ErrorIs(err, service.ErrForbidden)

	_, err = s.gameService.Update(s.ctx, testutil.PrincipalOf(s.owner), game.ID, service.GameInput{Title: "EarthBound", Status: models.GameBorrowed})
	s.Equal(apperror.CodeInvalid, apperror.CodeOf(err))

	_, err = s.gameService.Update(s.ctx, testutil.PrincipalOf(s.owner), game.ID, service.GameInput{Title: "EarthBound", Status: models.GameAvailable})
	s.Require().NoError(err)
	s.lend(game)

	_, err = s.gameService.Update(s.ctx, testutil.PrincipalOf(s.owner), game.ID, service.GameInput{Title: "EarthBound", Status: models.GameAvailable})
	s.ErrorIs(err, service.ErrGameBorrowed)

	// editing details of a lent game keeps it BORROWED
	updated, err = s.gameService.Update(s.ctx, testutil.PrincipalOf(s.admin), game.ID, service.GameInput{Title: "EarthBound (boxed)"})
	s.Require().NoError(err)
	s.Equal(models.GameBorrowed, updated.Status)
}

func (s *GameServiceIntegrationTestSuite) TestDelete() {
	lent := testutil.CreateTestGame(s.T(), s.testDB.DB, s.owner, "Lent")
	free := testutil.CreateTestGame(s.T(), s.testDB.DB, s.owner, "Free")
	s.lend(lent)

	s.ErrorIs(s.gameService.Delete(s.ctx, testutil.PrincipalOf(s.owner), lent.ID), service.ErrGameBorrowed)
	s.ErrorIs(s.gameService.Delete(s.ctx, testutil.PrincipalOf(s.other), free.ID), service.ErrForbidden)
	s.Require().NoError(s.gameService.Delete(s.ctx, testutil.PrincipalOf(s.owner), free.ID))

	_, err := s.gameService.Get(s.ctx, free.ID)
	s.ErrorIs(err, service.ErrGameNotFound)
}

func (s *GameServiceIntegrationTestSuite) TestCopyFromCatalog() {
	catalog := testutil.CreateCatalogGame(s.T(), s.testDB.DB, s.admin, "Super Metroid")
	personal := testutil.CreateTestGame(s.T(), s.testDB.DB, s.owner, "Personal")

	copyGame, err := s.gameService.CopyFromCatalog(s.ctx, testutil.PrincipalOf(s.other), catalog.ID)

	s.Require().NoError(err)
	s.Equal("Super Metroid", copyGame.Title)
	s.Equal(s.other.ID, copyGame.OwnerID)
	s.False(copyGame.IsCatalog)
	s.Require().NotNil(copyGame.CatalogGameID)
	s.Equal(catalog.ID, *copyGame.CatalogGameID)

	_, err = s.gameService.CopyFromCatalog(s.ctx, testutil.PrincipalOf(s.other), personal.ID)
	s.ErrorIs(err, service.ErrNotCatalogGame)

	// deleting the template keeps the copy
	s.Require().NoError(s.gameService.Delete(s.ctx, testutil.PrincipalOf(s.admin), catalog.ID))
	kept, err := s.gameService.Get(s.ctx, copyGame.ID)
	s.Require().NoError(err)
	s.Nil(kept.CatalogGameID)
}

func (s *GameServiceIntegrationTestSuite) TestList_Filters() {
	testutil.CreateTestGame(s.T(), s.testDB.DB, s.owner, "Chrono Trigger")
	testutil.CreateTestGame(s.T(), s.testDB.DB, s.owner, "Secret of Mana")
	testutil.CreateTestGame(s.T(), s.testDB.DB, s.other, "Chrono Cross")
	testutil.CreateCatalogGame(s.T(), s.testDB.DB, s.admin, "Chrono Trigger DS")

	yes := true
	testCases := []struct {
		name   string
		filter repository.GameFilter
		want   []string
	}{
		{"by_owner", repository.GameFilter{OwnerID: s.owner.ID}, []string{"Chrono Trigger", "Secret of Mana"}},
		{"query", repository.GameFilter{Query: "chrono"}, []string{"Chrono Cross", "Chrono Trigger", "Chrono Trigger DS"}},
		{"catalog", repository.GameFilter{Catalog: &yes}, []string{"Chrono Trigger DS"}},
		{"status", repository.GameFilter{Status: models.GameBorrowed}, []string{}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			games, err := s.gameService.List(s.ctx, tc.filter)
			s.Require().NoError(err)
			titles := make([]string, 0, len(games))
			for _, g := range games {
				titles = append(titles, g.Title)
			}
			s.Equal(tc.want, titles)
		})
	}
}

func TestGameServiceIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(GameServiceIntegrationTestSuite))
}
