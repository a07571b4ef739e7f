// Package database connects to the metadata backend that records which
// objects the origin serves.
//
// Two backends are supported:
//
//   - sqlite: a single file (or ":memory:"), good for one node and for tests
//   - postgres: a pgx connection pool, for origins that share metadata
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{
//	    Type:   "sqlite",
//	    DSN:    "mdedge.db",
//	    Tables: mdedge.Tables{MetaData: "mdedge_metadata"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	svc, err := mdedge.NewContentService(db.GetRepo(), storage, svcCfg)
package database
