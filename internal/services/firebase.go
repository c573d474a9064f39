package services

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

const defaultFirebaseCredentialsPath = "./firebase-service-account.json"

// InitFirebase initializes the Firebase Admin SDK and returns an auth client.
// The service account file is taken from FIREBASE_CREDENTIALS_PATH, falling
// back to a credentials file next to the binary.
func InitFirebase(ctx context.Context) (*auth.Client, error) {
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credPath == "" {
		credPath = defaultFirebaseCredentialsPath
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth client: %w", err)
	}
	return client, nil
}
