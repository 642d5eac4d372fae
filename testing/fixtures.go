package testing

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/torresguilherme/magic-qr-flows/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plain-text password of every fixture customer
const TestPassword = "TestPass123!"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCustomer creates an active customer with a random email
func (tf *TestFixtures) CreateTestCustomer() (*models.Customer, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	customer := &models.Customer{
		UUID:         uuid.New(),
		FullName:     "John Doe",
		Email:        fmt.Sprintf("john.doe.%s@example.com", randomDigits),
		PasswordHash: string(hashedPassword),
		Credits:      10,
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create test customer: %w", err)
	}

	return customer, nil
}

// CreateTestQRCode creates a QR code owned by the given customer
func (tf *TestFixtures) CreateTestQRCode(customerID uint, name string, dynamic bool) (*models.QRCode, error) {
	qr := &models.QRCode{
		UUID:           uuid.New(),
		CustomerID:     customerID,
		Name:           name,
		DestinationURL: "https://example.com/" + utils.DashWhitespace(name),
		IsDynamic:      dynamic,
		IsActive:       utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(qr).Error; err != nil {
		return nil, fmt.Errorf("failed to create test qr code: %w", err)
	}

	return qr, nil
}
