package middleware

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/liamroyal/etsy-software/internal/model"
)

// IDTokenVerifier описывает клиента Firebase Admin SDK.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseVerifier проверяет ID-токены Firebase и строит по ним пользователя.
// Роль берётся из custom claim "role"; без неё пользователь получает роль user.
type FirebaseVerifier struct {
	client IDTokenVerifier
}

// NewFirebaseVerifier создаёт FirebaseVerifier поверх готового клиента.
func NewFirebaseVerifier(client IDTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

// NewFirebaseVerifierFromConfig инициализирует Firebase App и клиент Auth.
// Пустой credentialsFile означает Application Default Credentials.
func NewFirebaseVerifierFromConfig(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}

	return NewFirebaseVerifier(client), nil
}

// VerifyToken реализует TokenVerifier.
func (f *FirebaseVerifier) VerifyToken(ctx context.Context, token string) (*model.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}

	verified, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		if firebaseauth.IsIDTokenExpired(err) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return &model.User{
		ID:    verified.UID,
		Email: claimString(verified.Claims["email"]),
		Role:  model.ParseRole(claimString(verified.Claims["role"])),
	}, nil
}

func claimString(value any) string {
	s, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
