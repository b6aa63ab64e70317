package services

import (
	"log"
	"net/http"
	"os"

	"bandroom/server/auth"
	"bandroom/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

type Bandroom struct {
	user      UserService
	band      BandService
	rehearsal RehearsalService
	venue     VenueService
	song      SongService
	setlist   SetlistService

	db *gorm.DB
}

func NewBandroom(db *gorm.DB, userAuth auth.IdentityProvider) Bandroom {
	return Bandroom{
		user:      UserService{db: db, userAuth: userAuth},
		band:      BandService{db: db, userAuth: userAuth},
		rehearsal: RehearsalService{db: db, userAuth: userAuth},
		venue:     VenueService{db: db, userAuth: userAuth},
		song:      SongService{db: db, userAuth: userAuth},
		setlist:   SetlistService{db: db, userAuth: userAuth},
		db:        db,
	}
}

func (b *Bandroom) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/auth", b.user.AuthRoutes())
	r.Mount("/users", b.user.Routes())
	r.Mount("/bands", b.band.Routes())
	r.Mount("/rehearsals", b.rehearsal.Routes())
	r.Mount("/venues", b.venue.Routes())
	r.Mount("/songs", b.song.Routes())
	r.Mount("/setlists", b.setlist.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	return r
}
