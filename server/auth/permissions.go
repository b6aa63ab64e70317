package auth

import (
	"errors"
	"fmt"
	"net/http"

	"bandroom/server/schema"
	"bandroom/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlatformAdminOnly restricts an endpoint to users with the platform
// admin role. Band-level roles are unrelated to this check.
func PlatformAdminOnly(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if user.Role != schema.UserRoleAdmin {
				http.Error(w, fmt.Sprintf("user %v is not an admin", user.Id), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// IsBandMember reports whether a membership row exists for the pair.
// Callers must invoke this fresh per request, permissions are never
// cached across requests.
func IsBandMember(bandId, userId uuid.UUID, db *gorm.DB) (bool, error) {
	_, err := schema.GetBandMember(bandId, userId, db)
	if err != nil {
		if errors.Is(err, schema.ErrBandMemberNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// IsBandAdmin reports whether the membership row exists and carries the
// band admin role.
func IsBandAdmin(bandId, userId uuid.UUID, db *gorm.DB) (bool, error) {
	member, err := schema.GetBandMember(bandId, userId, db)
	if err != nil {
		if errors.Is(err, schema.ErrBandMemberNotFound) {
			return false, nil
		}
		return false, err
	}

	return member.Role == schema.BandRoleAdmin, nil
}

func requireBandRole(db *gorm.DB, adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			bandId, err := utils.URLParamUUID(r, "band_id")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			var allowed bool
			if adminOnly {
				allowed, err = IsBandAdmin(bandId, user.Id, db)
			} else {
				allowed, err = IsBandMember(bandId, user.Id, db)
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if !allowed {
				if adminOnly {
					http.Error(w, "user must be a band admin to access endpoint", http.StatusForbidden)
				} else {
					http.Error(w, "user must be a band member to access endpoint", http.StatusForbidden)
				}
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// BandMemberOnly requires the caller to be a member of the band named by
// the {band_id} url parameter.
func BandMemberOnly(db *gorm.DB) func(http.Handler) http.Handler {
	return requireBandRole(db, false)
}

// BandAdminOnly requires the caller to hold the band admin role for the
// band named by the {band_id} url parameter.
func BandAdminOnly(db *gorm.DB) func(http.Handler) http.Handler {
	return requireBandRole(db, true)
}

func requireRehearsalBandRole(db *gorm.DB, adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			rehearsalId, err := utils.URLParamUUID(r, "rehearsal_id")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			rehearsal, err := schema.GetRehearsal(rehearsalId, db, false)
			if err != nil {
				if errors.Is(err, schema.ErrRehearsalNotFound) {
					http.Error(w, err.Error(), http.StatusNotFound)
					return
				}
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			var allowed bool
			if adminOnly {
				allowed, err = IsBandAdmin(rehearsal.BandId, user.Id, db)
			} else {
				allowed, err = IsBandMember(rehearsal.BandId, user.Id, db)
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if !allowed {
				if adminOnly {
					http.Error(w, "only band admins can modify rehearsals", http.StatusForbidden)
				} else {
					http.Error(w, "user must be a band member to access endpoint", http.StatusForbidden)
				}
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// RehearsalMemberOnly resolves the owning band of the {rehearsal_id}
// url parameter and requires band membership. Missing rehearsals yield
// 404 before any authorization decision.
func RehearsalMemberOnly(db *gorm.DB) func(http.Handler) http.Handler {
	return requireRehearsalBandRole(db, false)
}

// RehearsalAdminOnly is the admin-gated variant of RehearsalMemberOnly.
func RehearsalAdminOnly(db *gorm.DB) func(http.Handler) http.Handler {
	return requireRehearsalBandRole(db, true)
}
