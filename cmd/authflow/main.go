package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/saleslink/oauthflow/attemptstore"
	"github.com/saleslink/oauthflow/internal/config"
	"github.com/saleslink/oauthflow/launcher"
	"github.com/saleslink/oauthflow/oauthclient"
	"github.com/saleslink/oauthflow/providers"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running authorization flow: %s\n", err)
	}
}

func run() error {
	providerName := flag.String("provider", "mercadopago", "provider to authorize against (mercadopago, paypal, meta, twitter)")
	usePKCE := flag.Bool("pkce", true, "use PKCE for the authorization request")
	flag.Parse()

	_ = godotenv.Load()
	c := config.New()
	displayAppname(c.GetAppName())

	if c.GetEnv() == "DEV" {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	provider, err := providers.ByName(*providerName)
	if err != nil {
		return err
	}

	client, err := oauthclient.New(
		c.GetClientConfig(provider.Name),
		provider,
		attemptstore.NewInMemoryStore(c.GetAttemptTTL()),
	)
	if err != nil {
		return err
	}

	l := launcher.New(client, launcher.WithTimeout(c.GetFlowTimeout()))

	callbackServer, err := launcher.StartCallbackServer(l, provider.Name, c.GetCallbackAddr())
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = callbackServer.Shutdown(shutdownCtx)
	}()
	log.Printf("Callback redirect URI: %s\n", callbackServer.RedirectURI())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := l.Authorize(ctx, oauthclient.AuthorizeOptions{UsePKCE: *usePKCE})
	if err != nil {
		return err
	}

	log.Printf("Authorized against %s: token type %s, expires in %ds\n", provider.Name, result.TokenType, result.ExpiresIn)
	if result.Principal != nil {
		log.Printf("Principal: %s <%s> (%s)\n", result.Principal.Nickname, result.Principal.Email, result.Principal.ID)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
