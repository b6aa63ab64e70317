package schema

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Email    string `gorm:"unique;size:254;not null"`
	Password []byte

	FirstName string `gorm:"size:100;not null"`
	LastName  string `gorm:"size:100;not null"`

	Role     string `gorm:"size:50;not null;default:'user'"`
	IsActive bool   `gorm:"not null;default:true"`

	Profile          *Profile          `gorm:"constraint:OnDelete:CASCADE"`
	Memberships      []BandMember      `gorm:"constraint:OnDelete:CASCADE"`
	Availabilities   []Availability    `gorm:"constraint:OnDelete:CASCADE"`
	UnavailableDates []UnavailableDate `gorm:"constraint:OnDelete:CASCADE"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type Profile struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`

	Bio          string
	Phone        string `gorm:"size:50"`
	ProfileImage string `gorm:"size:500"`

	// Arbitrary client preferences, stored as serialized json.
	Preferences string
}

type Band struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name        string `gorm:"size:100;not null"`
	Description string
	LogoUrl     string `gorm:"size:500"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	Creator   *User     `gorm:"foreignKey:CreatedBy"`

	Members    []BandMember `gorm:"constraint:OnDelete:CASCADE"`
	Rehearsals []Rehearsal  `gorm:"constraint:OnDelete:CASCADE"`
	Songs      []Song       `gorm:"constraint:OnDelete:CASCADE"`
}

type BandMember struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	BandId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_band_members_band_user"`
	UserId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_band_members_band_user"`

	Role       string `gorm:"size:50;not null;default:'member'"`
	Instrument string `gorm:"size:100"`

	JoinDate time.Time

	Band *Band
	User *User
}

type Venue struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name        string `gorm:"size:200;not null"`
	Address     string `gorm:"size:200"`
	City        string `gorm:"size:100"`
	State       string `gorm:"size:100"`
	Zip         string `gorm:"size:20"`
	ContactInfo string `gorm:"size:200"`
	Notes       string
}

type Rehearsal struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	BandId  uuid.UUID  `gorm:"type:uuid;not null;index"`
	VenueId *uuid.UUID `gorm:"type:uuid"`

	Title       string `gorm:"size:200;not null"`
	Description string

	StartTime time.Time `gorm:"not null;index"`
	EndTime   time.Time `gorm:"not null"`

	IsRecurring bool `gorm:"not null;default:false"`
	// Opaque recurrence descriptor, stored as serialized json. No
	// expansion logic exists on the server.
	RecurrencePattern string

	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	Creator   *User     `gorm:"foreignKey:CreatedBy"`

	Band  *Band
	Venue *Venue `gorm:"constraint:OnDelete:SET NULL"`

	Attendances []Attendance `gorm:"constraint:OnDelete:CASCADE"`
	Setlists    []Setlist    `gorm:"constraint:OnDelete:CASCADE"`
}

type Attendance struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	RehearsalId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attendances_rehearsal_user"`
	UserId      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attendances_rehearsal_user"`

	Status string `gorm:"size:50;not null;default:'no_response'"`
	Note   string

	Rehearsal *Rehearsal
	User      *User
}

type Song struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	BandId uuid.UUID `gorm:"type:uuid;not null;index"`

	Title  string `gorm:"size:200;not null"`
	Artist string `gorm:"size:200"`
	Key    string `gorm:"size:20"`
	Tempo  int
	// Duration in seconds.
	Duration int
	Notes    string

	Band        *Band
	Attachments []SongAttachment `gorm:"constraint:OnDelete:CASCADE"`
}

type SongAttachment struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	SongId uuid.UUID `gorm:"type:uuid;not null;index"`

	Name     string `gorm:"size:200;not null"`
	FileUrl  string `gorm:"size:500;not null"`
	FileType string `gorm:"size:50"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
}

type Setlist struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	RehearsalId uuid.UUID `gorm:"type:uuid;not null;index"`

	Name  string `gorm:"size:200;not null"`
	Notes string

	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`

	Items []SetlistItem `gorm:"constraint:OnDelete:CASCADE"`
}

type SetlistItem struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	SetlistId uuid.UUID `gorm:"type:uuid;not null;index"`
	SongId    uuid.UUID `gorm:"type:uuid;not null"`

	Position int `gorm:"not null"`

	Song *Song
}

type Availability struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId uuid.UUID `gorm:"type:uuid;not null;index"`

	// 0 = Sunday through 6 = Saturday.
	DayOfWeek int    `gorm:"not null"`
	StartTime string `gorm:"size:20;not null"`
	EndTime   string `gorm:"size:20;not null"`

	RepeatWeekly bool `gorm:"not null;default:true"`
}

type UnavailableDate struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId uuid.UUID `gorm:"type:uuid;not null;index"`

	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`
	Reason    string
}

// Tables lists every entity for AutoMigrate calls.
func Tables() []interface{} {
	return []interface{}{
		&User{}, &Profile{}, &Band{}, &BandMember{}, &Venue{}, &Rehearsal{},
		&Attendance{}, &Song{}, &SongAttachment{}, &Setlist{}, &SetlistItem{},
		&Availability{}, &UnavailableDate{},
	}
}
