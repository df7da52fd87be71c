package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/pose"
	"github.com/ayusman/mudra/internal/posedb"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "export":
			runExport(os.Args[2:])
			return
		case "import":
			runImport(os.Args[2:])
			return
		}
	}

	runServe(os.Args[1:])
}

// dataDir returns ~/.mudra, creating it if needed.
func dataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dir := filepath.Join(homeDir, ".mudra")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	return dir
}

func openStore(dir string) *store.Store {
	st, err := store.New(filepath.Join(dir, "mudra.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	return st
}

// Settings table keys for values that survive restarts.
const (
	settingCameraID     = "camera_id"
	settingMotionThresh = "motion_threshold"
)

// resolveSettings reconciles flags with the persisted settings: a flag set
// on the command line wins and is saved for the next run, otherwise the
// stored value applies.
func resolveSettings(fs *flag.FlagSet, st *store.Store, cameraID *int, motionThresh *float64) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	settings := st.Settings()

	if set["camera"] {
		if err := settings.Set(settingCameraID, strconv.Itoa(*cameraID)); err != nil {
			log.Printf("Failed to save camera setting: %v", err)
		}
	} else if v, err := settings.Get(settingCameraID); err == nil {
		if id, err := strconv.Atoi(v); err == nil {
			*cameraID = id
		}
	}

	if set["motion"] {
		if err := settings.Set(settingMotionThresh, strconv.FormatFloat(*motionThresh, 'f', -1, 64)); err != nil {
			log.Printf("Failed to save motion setting: %v", err)
		}
	} else if v, err := settings.Get(settingMotionThresh); err == nil {
		if thresh, err := strconv.ParseFloat(v, 64); err == nil {
			*motionThresh = thresh
		}
	}
}

// watchCapture polls the recorder and pushes session label changes to fn.
func watchCapture(r *pose.Recorder, interval time.Duration, fn func(label string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""
	for range ticker.C {
		if label := r.Label(); label != last {
			fn(label)
			last = label
		}
	}
}

// runServe starts the detection pipeline and the HTTP control surface.
func runServe(args []string) {
	fs := flag.NewFlagSet("mudra", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "HTTP listen address")
	cameraID := fs.Int("camera", 0, "camera device ID")
	motionThresh := fs.Float64("motion", 1.0, "motion threshold, percent of changed pixels")
	withTray := fs.Bool("tray", false, "show the system tray")
	fs.Parse(args)

	fmt.Println("Mudra - Hand Pose Classifier")

	dir := dataDir()
	st := openStore(dir)
	defer st.Close()

	resolveSettings(fs, st, cameraID, motionThresh)

	a := app.New(app.Config{
		Store:        st,
		PluginDir:    filepath.Join(dir, "plugins"),
		CameraID:     *cameraID,
		MotionThresh: *motionThresh,
	})

	if err := a.LoadPoses(); err != nil {
		log.Fatalf("Failed to load poses: %v", err)
	}
	if err := a.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}

	a.SetEnabled(true)
	if err := a.Start(); err != nil {
		log.Printf("Detection pipeline unavailable: %v", err)
	}
	defer a.Stop()

	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
	})

	if !*withTray {
		fmt.Printf("Starting server on %s\n", *addr)
		if err := srv.ListenAndServe(*addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		if err := srv.ListenAndServe(*addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnSettings(func() {
		log.Printf("Settings: http://localhost%s/", *addr)
	})
	t.OnQuit(a.Stop)
	a.OnRanking(func(r pose.Ranking) {
		if best, ok := r.Best(); ok && best.Within {
			t.SetLastMatch(best.Label, best.Score)
		}
	})
	go watchCapture(a.Recorder(), 500*time.Millisecond, t.SetCapturing)

	t.Run()
}

// runExport writes the stored pose database to a flat-file directory.
func runExport(args []string) {
	fs := flag.NewFlagSet("mudra export", flag.ExitOnError)
	dir := fs.String("dir", "", "destination directory (required)")
	fs.Parse(args)

	if *dir == "" {
		fs.Usage()
		os.Exit(2)
	}

	st := openStore(dataDir())
	defer st.Close()

	db, err := posedb.FromStore(st)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	if err := posedb.Save(*dir, db); err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	total := 0
	for _, label := range db.Labels {
		total += len(db.Samples[label])
	}
	fmt.Printf("Exported %d poses (%d samples) to %s\n", len(db.Labels), total, *dir)
}

// runImport loads a flat-file pose database into the store.
func runImport(args []string) {
	fs := flag.NewFlagSet("mudra import", flag.ExitOnError)
	dir := fs.String("dir", "", "source directory (required)")
	fs.Parse(args)

	if *dir == "" {
		fs.Usage()
		os.Exit(2)
	}

	db, err := posedb.Load(*dir)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	st := openStore(dataDir())
	defer st.Close()

	if err := posedb.ImportInto(db, st); err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	total := 0
	for _, label := range db.Labels {
		total += len(db.Samples[label])
	}
	fmt.Printf("Imported %d poses (%d samples) from %s\n", len(db.Labels), total, *dir)
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
