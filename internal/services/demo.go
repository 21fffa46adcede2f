package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/internal/utils"
)

// DemoAccount is a built-in account whose profile is materialised on first use.
type DemoAccount struct {
	ID          string
	Email       string
	FullName    string
	Phone       string
	Type        models.UserType
	Specialty   string
	ServiceType string
}

var demoTable = []DemoAccount{
	{
		ID:       "650000000000000000000001",
		Email:    "patient@demo.health-e.sn",
		FullName: "Patient Démo",
		Phone:    "+221770000001",
		Type:     models.UserTypePatient,
	},
	{
		ID:          "650000000000000000000002",
		Email:       "pro@demo.health-e.sn",
		FullName:    "Dr Démo",
		Phone:       "+221770000002",
		Type:        models.UserTypeProfessional,
		Specialty:   "Médecine générale",
		ServiceType: "teleconsultation",
	},
	{
		ID:       "650000000000000000000003",
		Email:    "admin@demo.health-e.sn",
		FullName: "Admin Démo",
		Type:     models.UserTypeAdmin,
	},
}

// IsDemoEmail reports whether the address is reserved by the demo table.
// Reserved addresses cannot be registered, whether or not demo logins are on.
func IsDemoEmail(email string) bool {
	_, ok := findDemo(email)
	return ok
}

func findDemo(email string) (DemoAccount, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, acc := range demoTable {
		if acc.Email == email {
			return acc, true
		}
	}
	return DemoAccount{}, false
}

// DemoAccounts is the enabled demo table. A nil *DemoAccounts behaves as a
// disabled table: no lookup matches and no demo login succeeds.
type DemoAccounts struct {
	passwordHash string
}

// NewDemoAccounts enables the demo table with one shared password, kept
// only as a bcrypt hash.
func NewDemoAccounts(password string) (*DemoAccounts, error) {
	if len(password) < minPasswordLength {
		return nil, errors.New("demo account password must be at least 8 characters")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	return &DemoAccounts{passwordHash: hash}, nil
}

// Lookup matches an email against the demo table, case-insensitively.
func (d *DemoAccounts) Lookup(email string) (DemoAccount, bool) {
	if d == nil {
		return DemoAccount{}, false
	}
	return findDemo(email)
}

// Authenticate checks a demo login.
func (d *DemoAccounts) Authenticate(email, password string) (DemoAccount, bool) {
	acc, ok := d.Lookup(email)
	if !ok || !utils.CheckPasswordHash(password, d.passwordHash) {
		return DemoAccount{}, false
	}
	return acc, true
}

// Profile builds the default document for the account under the given id.
// The stored password is the demo hash, so later logins go through the
// regular profile path.
func (d *DemoAccounts) Profile(acc DemoAccount, id primitive.ObjectID, now time.Time) *models.User {
	return &models.User{
		ID:          id,
		FullName:    acc.FullName,
		Email:       acc.Email,
		Password:    d.passwordHash,
		Type:        acc.Type,
		Phone:       acc.Phone,
		Specialty:   acc.Specialty,
		ServiceType: acc.ServiceType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
