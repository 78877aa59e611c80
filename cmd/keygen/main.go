// Command keygen prints a random secret suitable for JWT_SECRET or
// API_KEY_SECRET, grounded on original_source/src/auth/jwt.rs's
// generate_secret_key (invoked from main.rs's "secret_key" CLI mode).
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"os"
)

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789)(*&^%$#@!~"

func main() {
	length := flag.Int("length", 50, "length of the generated secret")
	flag.Parse()

	secret, err := generateSecret(*length)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(secret)
}

func generateSecret(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive, got %d", length)
	}

	out := make([]byte, length)
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	for i, b := range buf {
		out[i] = charset[int(b)%len(charset)]
	}
	return string(out), nil
}
