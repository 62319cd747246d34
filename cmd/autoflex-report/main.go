// autoflex-report печатает план выпуска по данным сервера и при
// необходимости сохраняет его в xlsx.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/yasfei/inventory-autoflex/internal/client"
	"github.com/yasfei/inventory-autoflex/internal/config"
	"github.com/yasfei/inventory-autoflex/internal/domain/production"
	"github.com/yasfei/inventory-autoflex/internal/infra/excel"
	"github.com/yasfei/inventory-autoflex/internal/infra/logger"
	"github.com/yasfei/inventory-autoflex/internal/infra/notify"
	"github.com/yasfei/inventory-autoflex/internal/store"
)

func main() {
	cfgPath := flag.String("config", "config/example.yaml", "path to config file")
	baseURL := flag.String("url", "", "API base URL (overrides client.base_url)")
	xlsxPath := flag.String("xlsx", "", "write the plan to this xlsx file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Client.BaseURL = *baseURL
	}
	log := logger.NewWithWriter(cfg.App.Env, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New(client.New(cfg.Client.BaseURL, nil), notify.NewLog(log), log)
	if err := st.Refresh(ctx); err != nil {
		log.Error("load failed", "url", cfg.Client.BaseURL, "err", err)
		os.Exit(1)
	}

	plan := st.Production()
	printPlan(os.Stdout, plan)

	if *xlsxPath != "" {
		data, err := excel.ExportPlan(plan)
		if err != nil {
			log.Error("export failed", "err", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxPath, data, 0o644); err != nil {
			log.Error("write failed", "path", *xlsxPath, "err", err)
			os.Exit(1)
		}
		log.Info("plan saved", "path", *xlsxPath)
	}
}

func printPlan(w io.Writer, plan production.PlanResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CODE\tNAME\tUNIT VALUE\tMAX QTY\tTOTAL")
	for _, l := range plan.Producible {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", l.Code, l.Name, l.Value.StringFixed(2), l.MaxQuantity, l.TotalValue.StringFixed(2))
	}
	for _, p := range plan.Blocked {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t-\tblocked\n", p.Code, p.Name, p.Value.StringFixed(2))
	}
	_, _ = fmt.Fprintf(tw, "\t\t\t\t%s\n", plan.TotalValue.StringFixed(2))
	_ = tw.Flush()
}
