package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/tombury59/PWA-CHAT/internal/chat"
	"github.com/tombury59/PWA-CHAT/internal/config"
	"github.com/tombury59/PWA-CHAT/internal/directory"
	"github.com/tombury59/PWA-CHAT/internal/media"
	"github.com/tombury59/PWA-CHAT/internal/offline"
	"github.com/tombury59/PWA-CHAT/internal/presence"
	"github.com/tombury59/PWA-CHAT/internal/profile"
	"github.com/tombury59/PWA-CHAT/internal/restapi"
	"github.com/tombury59/PWA-CHAT/internal/socket"
	"github.com/tombury59/PWA-CHAT/internal/storage"
)

// terminalNotifier is the platform notification surface of a terminal: a
// bell plus one line.
type terminalNotifier struct {
	granted bool
}

func (n *terminalNotifier) Granted() bool { return n.granted }

func (n *terminalNotifier) Notify(room, from, content string) {
	fmt.Printf("\a🔔 [%s] %s: %s\n", room, from, content)
}

// app bundles everything the REPL drives.
type app struct {
	store    storage.Store
	profiles *profile.Manager
	gallery  *profile.Gallery
	api      *restapi.Client
	provider *socket.Provider
	dir      *directory.Directory
	watcher  *directory.Watcher
	repo     *chat.Repository
	resolver *media.Resolver
	outbox   *offline.Outbox
	msgCache *offline.Cache

	// mu guards the open-room fields; the reconnect callback runs on the
	// provider's goroutine.
	mu      sync.Mutex
	session *chat.Session
	roster  *presence.Roster
	room    string
}

func (a *app) currentSession() *chat.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// 1. Local persistence (Platform Layer)
	var store storage.Store
	var err error
	switch cfg.Store.Backend {
	case "redis":
		store, err = storage.OpenRedis(ctx, cfg.Store.RedisAddr, "pwa-chat:")
		if err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		log.Println("✅ Connected to Redis store")
	default:
		store, err = storage.OpenSQLite(cfg.Store.DBPath)
		if err != nil {
			log.Fatalf("❌ Failed to open local store: %v", err)
		}
		log.Printf("✅ Local store ready (%s)", cfg.Store.DBPath)
	}
	defer store.Close()

	// 2. Profile & gallery
	profiles := profile.NewManager(store)
	gallery := profile.NewGallery(store)

	// 3. REST API + media
	api := restapi.NewClient(cfg.API.BaseURL, cfg.API.Token)
	resolver := media.NewResolver(api)

	// 4. Connection handle (created once, connects on the online signal)
	sockCfg := socket.DefaultConfig(cfg.Socket.URL)
	sockCfg.Token = cfg.API.Token
	sockCfg.MaxRetries = cfg.Socket.MaxRetries
	sockCfg.BackoffBase = time.Duration(cfg.Socket.BackoffBaseMs) * time.Millisecond
	sockCfg.BackoffCap = time.Duration(cfg.Socket.BackoffCapMs) * time.Millisecond
	sockCfg.DialTimeout = time.Duration(cfg.Socket.DialTimeoutSec) * time.Second
	provider := socket.NewProvider(sockCfg)
	defer provider.Close()

	a := &app{
		store:    store,
		profiles: profiles,
		gallery:  gallery,
		api:      api,
		provider: provider,
		dir:      directory.New(api),
		repo:     chat.NewRepository(store),
		resolver: resolver,
		outbox:   offline.NewOutbox(store),
		msgCache: offline.NewCache(store),
	}

	// 5. Notification watcher (opt-ins survive restarts)
	notifier := &terminalNotifier{granted: os.Getenv("CHAT_NOTIFICATIONS") != "off"}
	watcher, err := directory.NewWatcher(ctx, provider, store, notifier, func() string {
		return profiles.Name(ctx)
	})
	if err != nil {
		log.Fatalf("❌ Failed to load notification settings: %v", err)
	}
	a.watcher = watcher

	// Re-announce subscriptions, rejoin and flush queued messages whenever
	// the handle comes back. The server forgets memberships on every drop.
	provider.OnStateChange(func(st socket.State) {
		log.Printf("🔌 Connection %s", st)
		if st != socket.StateConnected {
			return
		}
		watcher.Resubscribe()
		session := a.currentSession()
		if session == nil {
			return
		}
		if err := session.Join(); err != nil {
			log.Printf("⚠️ Rejoin failed: %v", err)
		}
		if err := session.FlushOutbox(); err != nil {
			log.Printf("⚠️ Outbox flush failed: %v", err)
		}
	})

	// We are a terminal app: being started means being online.
	provider.SetOnline(true)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		a.leaveRoom()
		provider.Close()
		store.Close()
		os.Exit(0)
	}()

	log.Println("🚀 PWA-CHAT ready. Type /help for commands.")
	a.repl(ctx)
}

func (a *app) repl(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			a.send(line)
			continue
		}
		parts := strings.SplitN(line, " ", 3)
		switch parts[0] {
		case "/help":
			printHelp()
		case "/rooms":
			a.listRooms(ctx, argAt(parts, 1))
		case "/create":
			a.createRoom(ctx, argAt(parts, 1))
		case "/join":
			a.joinRoom(ctx, argAt(parts, 1))
		case "/leave":
			a.leaveRoom()
		case "/who":
			a.who()
		case "/notify":
			a.toggleNotify(ctx, argAt(parts, 1), argAt(parts, 2))
		case "/profile":
			a.setProfile(ctx, strings.TrimPrefix(line, "/profile "))
		case "/avatar":
			a.setAvatar(ctx, argAt(parts, 1))
		case "/gallery":
			a.showGallery(ctx)
		case "/addphoto":
			a.addPhoto(ctx, argAt(parts, 1))
		case "/delphoto":
			a.delPhoto(ctx, argAt(parts, 1))
		case "/photo":
			a.sendPhoto(ctx, argAt(parts, 1))
		case "/logout":
			a.logout(ctx)
		case "/quit":
			a.leaveRoom()
			return
		default:
			fmt.Println("Unknown command, try /help")
		}
	}
}

func argAt(parts []string, i int) string {
	if i < len(parts) {
		return strings.TrimSpace(parts[i])
	}
	return ""
}

func printHelp() {
	fmt.Println(`Commands:
  /rooms [query]        list rooms (filtered)
  /create <name>        create a room (query must match nothing)
  /join <room>          enter a room
  /leave                leave the current room
  /who                  list participants
  /notify <room> on|off toggle notifications for a room
  /profile <name>       set your display name
  /avatar <file>        set your avatar from an image file
  /gallery              list gallery photos
  /addphoto <file>      add a photo to the gallery
  /delphoto <index>     remove a gallery photo
  /photo <file>         share an image in the current room
  /logout               clear profile and gallery
  /quit                 exit
Anything else is sent as a message.`)
}

func (a *app) listRooms(ctx context.Context, query string) {
	if err := a.dir.Refresh(ctx); err != nil {
		fmt.Printf("Erreur: %v\n", err)
		if len(a.dir.Rooms()) == 0 {
			return
		}
	}
	rooms := a.dir.Filter(query)
	if len(rooms) == 0 {
		fmt.Println("Aucune salle disponible.")
		if a.dir.CanCreate(query) {
			fmt.Printf("Create it with: /create %s\n", query)
		}
		return
	}
	for _, r := range rooms {
		marker := " "
		if a.watcher.Enabled(r.Name) {
			marker = "🔔"
		}
		fmt.Printf(" %s # %s\n", marker, r.Decoded)
	}
}

func (a *app) createRoom(ctx context.Context, name string) {
	if err := a.dir.Refresh(ctx); err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	if !a.dir.CanCreate(name) {
		fmt.Println("Pick a non-empty name that matches no existing room.")
		return
	}
	room, err := a.dir.Create(ctx, name)
	if err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	a.joinRoom(ctx, room.Name)
}

func (a *app) joinRoom(ctx context.Context, room string) {
	if room == "" {
		fmt.Println("Usage: /join <room>")
		return
	}
	if !a.profiles.Complete(ctx) {
		fmt.Println("Set a name and an avatar first (/profile, /avatar).")
		return
	}
	a.leaveRoom()

	fmt.Printf("=== Salle %s ===\n", directory.DecodeName(room))

	// The received-messages mirror doubles as a recovery copy when the
	// room's history key was cleared.
	if restored, err := chat.RestoreFromCache(ctx, a.repo, a.msgCache, room); err != nil {
		log.Printf("⚠️ Could not restore history for %s: %v", room, err)
	} else if restored {
		log.Printf("✅ Restored cached history for %s", room)
	}

	session := chat.NewSession(room, a.profiles.Name(ctx), a.provider, a.repo, a.resolver, a.outbox)

	// Updates arrive from the socket and resolver goroutines; print only
	// what is new and mirror the full list into the received cache.
	var printMu sync.Mutex
	printed := 0
	session.OnUpdate(func(msgs []chat.Message) {
		printMu.Lock()
		for i := printed; i < len(msgs); i++ {
			printMessage(msgs[i])
		}
		if len(msgs) > printed {
			printed = len(msgs)
		}
		printMu.Unlock()

		if err := a.msgCache.SaveReceived(context.Background(), room, msgs); err != nil {
			log.Printf("⚠️ Could not mirror messages for %s: %v", room, err)
		}
	})
	if err := session.Open(ctx); err != nil {
		fmt.Printf("Erreur: %v\n", err)
		session.Close()
		return
	}

	a.mu.Lock()
	a.session = session
	a.roster = presence.NewRoster(a.provider)
	a.room = room
	a.mu.Unlock()
}

func (a *app) leaveRoom() {
	a.mu.Lock()
	session, roster := a.session, a.roster
	a.session, a.roster, a.room = nil, nil, ""
	a.mu.Unlock()

	if session == nil {
		return
	}
	session.Close()
	roster.Close()
}

func (a *app) send(content string) {
	session := a.currentSession()
	if session == nil {
		fmt.Println("Join a room first (/join <room>).")
		return
	}
	if err := session.Send(content); err != nil {
		fmt.Printf("Erreur: %v\n", err)
	}
}

func (a *app) who() {
	a.mu.Lock()
	roster := a.roster
	a.mu.Unlock()
	if roster == nil {
		fmt.Println("Join a room first.")
		return
	}
	for _, name := range roster.Names() {
		fmt.Println(" •", name)
	}
}

func (a *app) toggleNotify(ctx context.Context, room, state string) {
	if room == "" || (state != "on" && state != "off") {
		fmt.Println("Usage: /notify <room> on|off")
		return
	}
	if err := a.watcher.SetEnabled(ctx, room, state == "on"); err != nil {
		fmt.Printf("Erreur: %v\n", err)
	}
}

func (a *app) setProfile(ctx context.Context, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Usage: /profile <name>")
		return
	}
	if err := a.profiles.SetName(ctx, name); err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	fmt.Printf("Bienvenue, %s !\n", name)
}

func (a *app) setAvatar(ctx context.Context, path string) {
	if path == "" {
		fmt.Println("Usage: /avatar <file>")
		return
	}
	photo, err := media.ImportFile(path)
	if err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	if err := a.profiles.SetPhoto(ctx, photo); err != nil {
		fmt.Printf("Erreur: %v\n", err)
	}
}

func (a *app) showGallery(ctx context.Context) {
	photos, err := a.gallery.Photos(ctx)
	if err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	if len(photos) == 0 {
		fmt.Println("Votre galerie est vide.")
		return
	}
	for i, p := range photos {
		fmt.Printf(" %d. image (%d bytes)\n", i, len(p))
	}
}

func (a *app) addPhoto(ctx context.Context, path string) {
	if path == "" {
		fmt.Println("Usage: /addphoto <file>")
		return
	}
	photo, err := media.ImportFile(path)
	if err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	if err := a.gallery.Add(ctx, photo); err != nil {
		fmt.Printf("Erreur: %v\n", err)
	}
}

func (a *app) delPhoto(ctx context.Context, arg string) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Println("Usage: /delphoto <index>")
		return
	}
	if err := a.gallery.Delete(ctx, index); err != nil {
		fmt.Printf("Erreur: %v\n", err)
	}
}

// sendPhoto uploads the image first and shares the deferred reference; the
// payload is fetched by each client when the notice arrives.
func (a *app) sendPhoto(ctx context.Context, path string) {
	session := a.currentSession()
	if session == nil {
		fmt.Println("Join a room first.")
		return
	}
	if path == "" {
		fmt.Println("Usage: /photo <file>")
		return
	}
	payload, err := media.ImportFile(path)
	if err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	id := media.NewUploadID()
	if _, err := a.api.UploadImage(ctx, id, payload); err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	if err := session.Send(media.FormatNotice(id)); err != nil {
		fmt.Printf("Erreur: %v\n", err)
	}
}

func (a *app) logout(ctx context.Context) {
	a.leaveRoom()
	if err := a.profiles.Logout(ctx); err != nil {
		fmt.Printf("Erreur: %v\n", err)
		return
	}
	fmt.Println("Déconnexion. À bientôt !")
}

func printMessage(msg chat.Message) {
	when := msg.DateEmis
	if t, err := time.Parse(time.RFC3339, msg.DateEmis); err == nil {
		when = t.Local().Format("15:04")
	}
	switch {
	case msg.Categorie == chat.CategoryInfo:
		fmt.Printf("   · %s\n", msg.Content)
	case media.IsDataURI(msg.Content):
		fmt.Printf("[%s] %s: 🖼 image (%d bytes)\n", when, msg.Pseudo, len(msg.Content))
	default:
		fmt.Printf("[%s] %s: %s\n", when, msg.Pseudo, msg.Content)
	}
}
