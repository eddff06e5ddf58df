package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const deviceIssuer = "reading-log"

// DeviceCodec signs and verifies the device cookie, an HS256 JWT whose
// subject is the device id.
type DeviceCodec struct {
	secret []byte
	now    func() time.Time
}

// NewDeviceCodec constructs a DeviceCodec keyed by secret.
func NewDeviceCodec(secret string) *DeviceCodec {
	return &DeviceCodec{secret: []byte(secret), now: time.Now}
}

// NewDeviceID returns a fresh random device id.
func NewDeviceID() string {
	return uuid.NewString()
}

// Issue signs a cookie value for deviceID.
func (d *DeviceCodec) Issue(deviceID string) (string, error) {
	issuedAt := d.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:   deviceIssuer,
		Subject:  deviceID,
		IssuedAt: jwt.NewNumericDate(issuedAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.secret)
}

// Parse verifies a cookie value and returns its device id.
func (d *DeviceCodec) Parse(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return d.secret, nil
	}, jwt.WithIssuer(deviceIssuer))
	if err != nil {
		return "", fmt.Errorf("parse device token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid device token")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("device id: %w", err)
	}
	return claims.Subject, nil
}
