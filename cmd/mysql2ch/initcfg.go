package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/baderkha/mysql2ch/pkg/migrate/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter job file",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := afero.NewOsFs()
		if ok, _ := afero.Exists(fs, cfgFile); ok {
			return fmt.Errorf("%s already exists, refusing to overwrite", cfgFile)
		}
		if err := afero.WriteFile(fs, cfgFile, []byte(config.Template), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", cfgFile)
		return nil
	},
}
