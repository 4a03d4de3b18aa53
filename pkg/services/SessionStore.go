package services

import (
	"net/http"

	"github.com/adampresley/photovault/pkg/models"
)

/*
SessionStorer is the slice of the cookie session wrapper this application
uses. The adamgokit session wrapper satisfies it; tests use fakes.
*/
type SessionStorer interface {
	Get(r *http.Request) (*models.SessionUser, error)
	Set(r *http.Request, user *models.SessionUser) error
	Save(w http.ResponseWriter, r *http.Request) error
	Destroy(w http.ResponseWriter, r *http.Request) error
}
