// Command reviewtoken mints a short-lived bearer token for the bot's
// admin endpoints. Reviewers run it locally with the signing key and
// pass the output as an Authorization header.
package main

import (
	"flag"
	"fmt"
	"os"

	"diamondbot/internal/servicetoken"
)

func main() {
	keyPath := flag.String("key", "", "path to the RSA private key PEM")
	issuer := flag.String("issuer", "review-cli", "token issuer")
	audience := flag.String("audience", "bot-admin", "token audience")
	ttl := flag.Duration("ttl", servicetoken.DefaultTokenTTL, "token lifetime")
	flag.Parse()

	if *keyPath == "" {
		fmt.Fprintln(os.Stderr, "usage: reviewtoken -key <private.pem> [-issuer X] [-audience Y] [-ttl 60s]")
		os.Exit(2)
	}

	signer, err := servicetoken.NewSigner(*issuer, *keyPath, *ttl)
	if err != nil {
		exitErr(err)
	}
	token, err := signer.Sign(*audience)
	if err != nil {
		exitErr(err)
	}
	fmt.Println(token)
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
