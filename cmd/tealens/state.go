package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jask/tealens/internal/database"
	"github.com/jask/tealens/internal/service"
)

func runStateShow(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	open := opener(cfg.Storage, nil, nil)
	if open == nil {
		return fmt.Errorf("storage is disabled")
	}
	b, err := open()
	if err != nil {
		return err
	}
	defer b.Close()
	body, ok, err := b.Load()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "no snapshot stored")
		return nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(body), "", "  "); err != nil {
		out.Reset()
		out.WriteString(body)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.String())
	return nil
}

func runStateReset(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := database.OpenMigrated(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		n, err := (&service.MaintenanceService{DB: db}).Reset(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d snapshot(s)\n", n)
	case "file":
		b, err := opener(cfg.Storage, nil, nil)()
		if err != nil {
			return err
		}
		defer b.Close()
		if err := b.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "snapshot removed")
	default:
		return fmt.Errorf("storage is disabled")
	}
	return nil
}
