package http

import (
	"net/http"
	"testing"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	"github.com/kauecavalcante/chef-de-geladeira/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func setupProfileHandler() (*mockProfileManager, *echoRoutes) {
	profiles := new(mockProfileManager)
	h := NewProfileHandler(profiles, zap.NewNop())

	e := newTestEcho()
	e.GET("/api/v1/profile", h.GetProfile)
	e.PUT("/api/v1/profile", h.UpdateProfile)
	e.PUT("/api/v1/profile/preferences", h.UpdatePreferences)
	return profiles, &echoRoutes{e}
}

func TestProfileHandler_GetProfile(t *testing.T) {
	profiles, routes := setupProfileHandler()
	profiles.On("GetProfile", mock.Anything, testUserID, testEmail).Return(&usecase.ProfileView{
		UserID:           testUserID,
		Plan:             entity.PlanFree,
		RecipeCount:      4,
		MonthlyLimit:     10,
		RemainingRecipes: 6,
	}, nil)

	rec := routes.serve(http.MethodGet, "/api/v1/profile", "", true)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "free", body["plan"])
	assert.Equal(t, float64(6), body["remainingRecipes"])
}

func TestProfileHandler_UpdateProfile(t *testing.T) {
	t.Run("display name only leaves preferences untouched", func(t *testing.T) {
		profiles, routes := setupProfileHandler()
		profiles.On("UpdateProfile", mock.Anything, testUserID, testEmail,
			mock.MatchedBy(func(name *string) bool { return name != nil && *name == "Ana" }),
			[]string(nil)).Return(nil)

		rec := routes.serve(http.MethodPut, "/api/v1/profile", `{"displayName":"Ana"}`, true)

		assert.Equal(t, http.StatusOK, rec.Code)
		profiles.AssertExpectations(t)
	})

	t.Run("an empty list clears preferences", func(t *testing.T) {
		profiles, routes := setupProfileHandler()
		profiles.On("UpdateProfile", mock.Anything, testUserID, testEmail, (*string)(nil), []string{}).Return(nil)

		rec := routes.serve(http.MethodPut, "/api/v1/profile", `{"dietaryPreferences":[]}`, true)

		assert.Equal(t, http.StatusOK, rec.Code)
		profiles.AssertExpectations(t)
	})
}

func TestProfileHandler_UpdatePreferences(t *testing.T) {
	profiles, routes := setupProfileHandler()
	profiles.On("UpdatePreferences", mock.Anything, testUserID, testEmail, []string{"Vegana", "Sem Glúten"}).Return(nil)

	rec := routes.serve(http.MethodPut, "/api/v1/profile/preferences", `{"dietaryPreferences":["Vegana","Sem Glúten"]}`, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	profiles.AssertExpectations(t)
}
