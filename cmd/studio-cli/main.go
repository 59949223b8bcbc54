package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	openaiagent "studio-cli/internal/agent/openai"
	"studio-cli/internal/brand"
	"studio-cli/internal/config"
	"studio-cli/internal/gallery"
	"studio-cli/internal/logger"
	"studio-cli/internal/sidechannel"
	"studio-cli/internal/tui"
)

var log = logger.Named("main")

func main() {
	logger.Configure()

	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "brand":
			brandMain(args[1:])
			return
		case "gallery":
			galleryMain(args[1:])
			return
		}
	}
	runInteractive(args)
}

func runInteractive(args []string) {
	fs := flag.NewFlagSet("studio-cli", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file path (default ~/.studio/config.toml)")
	model := fs.String("model", "", "chat model override")
	imageModel := fs.String("image-model", "", "image model override")
	brandName := fs.String("brand", "", "brand profile name")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse args: %v", err)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *imageModel != "" {
		cfg.ImageModel = *imageModel
	}
	if *brandName != "" {
		cfg.Brand = *brandName
	}

	if logFile, _, err := logger.SetupFile(cfg.LogPath); err != nil {
		log.Warnf("failed to initialize log file: %v", err)
	} else {
		defer logFile.Close()
	}

	var profile brand.Profile
	if cfg.Brand != "" {
		profile, err = brand.Load(cfg.Brand)
		if err != nil {
			log.Fatalf("failed to load brand %q: %v", cfg.Brand, err)
		}
	}

	store, err := gallery.NewDefault()
	if err != nil {
		log.Fatalf("failed to open gallery: %v", err)
	}
	feed := sidechannel.NewFeed()
	defer feed.Close()

	stream, err := openaiagent.New(openaiagent.Options{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		ImageModel: cfg.ImageModel,
		Gallery:    store,
		Feed:       feed,
	})
	if err != nil {
		log.Fatalf("failed to create agent client: %v", err)
	}

	result, err := tui.Run(tui.Options{
		Stream:  stream,
		Feed:    feed,
		Gallery: store,
		Brand:   profile,
		Model:   cfg.Model,
	})
	if err != nil {
		log.Fatalf("tui exited with error: %v", err)
	}
	log.WithField("session_id", result.SessionID).Infof("session finished")
}

// brandMain 管理品牌档案：list / show / init。
func brandMain(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: studio-cli brand <list|show|init> [name]")
		os.Exit(2)
	}
	switch args[0] {
	case "list":
		names, err := brand.List()
		if err != nil {
			log.Fatalf("list brands: %v", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	case "show":
		if len(args) < 2 {
			log.Fatalf("usage: studio-cli brand show <name>")
		}
		profile, err := brand.Load(args[1])
		if err != nil {
			log.Fatalf("load brand: %v", err)
		}
		fmt.Printf("name:     %s\nvoice:    %s\ntagline:  %s\naudience: %s\npalette:  %s\n",
			profile.Name, profile.Voice, profile.Tagline, profile.Audience, strings.Join(profile.Palette, ", "))
	case "init":
		if len(args) < 2 {
			log.Fatalf("usage: studio-cli brand init <name>")
		}
		profile := brand.Profile{Name: args[1], Voice: "friendly and concise"}
		if err := brand.Save(profile); err != nil {
			log.Fatalf("save brand: %v", err)
		}
		dir, _ := brand.Dir()
		fmt.Printf("created %s/%s.toml, edit it to fill in the brand voice\n", dir, profile.Name)
	default:
		fmt.Fprintln(os.Stderr, "usage: studio-cli brand <list|show|init> [name]")
		os.Exit(2)
	}
}

// galleryMain 列出本地图库。
func galleryMain(args []string) {
	store, err := gallery.NewDefault()
	if err != nil {
		log.Fatalf("open gallery: %v", err)
	}
	images, err := store.List()
	if err != nil {
		log.Fatalf("list gallery: %v", err)
	}
	for _, img := range images {
		prompt := img.Prompt
		if len(prompt) > 60 {
			prompt = prompt[:59] + "…"
		}
		fmt.Printf("%s  %-5s  %s  %s\n", img.ID, img.Kind, img.Updated.Format("2006-01-02 15:04"), prompt)
	}
}
