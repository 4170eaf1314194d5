// edgepurge server entrypoint. All configuration comes from environment
// variables; provider credentials may be left empty, in which case the
// service runs in not-configured mode until the operator supplies them.
package main

import (
	"log"

	"github.com/eringen/edgepurge"
	"github.com/eringen/edgepurge/mediastore"
)

func main() {
	cfg := edgepurge.DefaultConfig()
	cfg.Credentials = edgepurge.Credentials{
		ZoneID:   edgepurge.EnvOr("CLOUDFLARE_ZONE_ID", ""),
		APIToken: edgepurge.EnvOr("CLOUDFLARE_API_TOKEN", ""),
	}
	cfg.Addr = edgepurge.EnvOr("EDGEPURGE_ADDR", ":3100")
	cfg.SessionSecret = edgepurge.MustEnv("EDGEPURGE_SESSION_SECRET")
	cfg.LogDatabasePath = edgepurge.EnvOr("EDGEPURGE_LOG_DB", "data/purgelog.db")

	cfg.AutoPurgeOnSave = edgepurge.BoolEnvOr("EDGEPURGE_AUTO_PURGE_ON_SAVE", true)
	cfg.PurgeAttachedImages = edgepurge.BoolEnvOr("EDGEPURGE_PURGE_ATTACHED_IMAGES", true)
	cfg.PurgeContentImages = edgepurge.BoolEnvOr("EDGEPURGE_PURGE_CONTENT_IMAGES", true)
	cfg.AutoPurgeOnMediaReplace = edgepurge.BoolEnvOr("EDGEPURGE_AUTO_PURGE_ON_MEDIA_REPLACE", true)
	cfg.LogOperations = edgepurge.BoolEnvOr("EDGEPURGE_LOG_OPERATIONS", true)
	cfg.AsyncPurging = edgepurge.BoolEnvOr("EDGEPURGE_ASYNC_PURGING", true)

	source, err := mediastore.NewStore(
		edgepurge.EnvOr("EDGEPURGE_MEDIA_DB", "data/media.db"),
		edgepurge.EnvOr("EDGEPURGE_UPLOADS_DIR", "data/uploads"),
		edgepurge.MustEnv("EDGEPURGE_UPLOAD_BASE_URL"),
	)
	if err != nil {
		log.Fatalf("edgepurge: init media store: %v", err)
	}
	defer source.Close()

	if !cfg.Credentials.Configured() {
		log.Println("edgepurge: zone id or API token missing, purge operations disabled until configured")
	}

	app := edgepurge.New(cfg, source)
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
