package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/meridius/docx2mail/internal/app/config"
	"github.com/meridius/docx2mail/internal/app/converter"
	"github.com/meridius/docx2mail/internal/app/editor"
	"github.com/meridius/docx2mail/internal/app/mailclient"
	"github.com/meridius/docx2mail/internal/pkg/logger"
)

var (
	configFilepath = flag.String("config", "./config.yaml", "Filepath to configuration file. Default is './config.yaml'")
	envFilepath    = flag.String("env-file", "./.env", "Filepath to environment variables file. Default is '.env'")
	docxPath       = flag.String("docx", "", "Filepath to the docx document to convert (required)")
	headersPath    = flag.String("headers", "", "Optional YAML file overriding the metadata extracted from the document header")
	replyPath      = flag.String("reply", "", "Optional .eml file to reply to instead of creating a new mail item")
	replyAll       = flag.Bool("reply-all", false, "Reply to all recipients of the reply target")
	display        = flag.Bool("display", false, "Display the created mail item in the mail client")
	forceRender    = flag.Bool("force-render", false, "Save the mail item so the client renders the HTML body; leaves the item in the drafts location")
	printHTML      = flag.Bool("print-html", false, "Print the rendered HTML body instead of creating a mail item")
)

func main() {
	flag.Parse()

	if *docxPath == "" {
		log.Fatal("the -docx flag is required")
	}

	cfg, err := config.LoadConfig(*configFilepath, *envFilepath)
	if err != nil {
		log.Fatalf("failed to load configuration: %s", err)
	}

	slogger := slog.New(logger.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       slog.Level(cfg.LogLevel),
		ReplaceAttr: logger.ReplaceAttr,
	})))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, slogger); err != nil {
		if !errors.Is(err, context.Canceled) {
			slogger.Error("conversion failed", slog.Any("error", err))
			cancel()
			//nolint:gocritic
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, cfg config.Config, slogger *slog.Logger) error {
	var (
		client mailclient.Client
		eml    *mailclient.EMLClient
	)
	switch cfg.Mail.Backend {
	case config.BackendEML:
		eml = mailclient.NewEMLClient(cfg.Mail.EML.Dir, slogger.With(slog.String("module", "eml_client")))
		client = eml
	case config.BackendIMAP:
		client = mailclient.NewIMAPClient(
			cfg.Mail.IMAP,
			mailclient.DialerFunc(imapclient.DialTLS),
			slogger.With(slog.String("module", "imap_client")),
		)
	default:
		return fmt.Errorf("unknown mail backend %q", cfg.Mail.Backend)
	}

	ed := editor.NewSoffice(cfg.Editor.Command, slogger.With(slog.String("module", "editor")))

	conv, err := converter.New(*docxPath, client, ed, slogger.With(slog.String("module", "converter")))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conv.Close(); cerr != nil {
			slogger.Warn("temporary directory cleanup failed", slog.Any("error", cerr))
		}
	}()

	conv.SetTemplateValues(cfg.Template.Values)
	if *headersPath != "" {
		if err := conv.SetHeadersFile(*headersPath); err != nil {
			return err
		}
	}

	if *printHTML {
		html, err := conv.HTML(ctx)
		if err != nil {
			return err
		}
		fmt.Println(html)
		return nil
	}

	opts := converter.Options{
		Display:     *display,
		ForceRender: *forceRender,
	}
	if *replyPath != "" {
		if eml == nil {
			return errors.New("the -reply flag requires the eml mail backend")
		}
		target, err := eml.Load(*replyPath)
		if err != nil {
			return err
		}
		opts.ReplyTo = target
		opts.ReplyMode = converter.ReplyModeReply
		if *replyAll {
			opts.ReplyMode = converter.ReplyModeReplyAll
		}
	}

	if _, err := conv.Convert(ctx, opts); err != nil {
		return err
	}
	for _, warning := range conv.Warnings() {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}
	return nil
}
