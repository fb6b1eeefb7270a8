package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"hannu-storefront/internal/domain"
	"hannu-storefront/internal/spreadsheet"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var errProductNotFound = errors.New("product not found")

func newProductsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"p"},
		Short:   "List and edit catalog products",
	}
	cmd.AddCommand(
		newProductsListCmd(a),
		newProductsCreateCmd(a),
		newProductsUpdateCmd(a),
		newProductsDeleteCmd(a),
		newProductsExportCmd(a),
		newProductsImportCmd(a),
	)
	return cmd
}

func newProductsListCmd(a *app) *cobra.Command {
	var (
		category string
		search   string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products, optionally filtered by category and search term",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := domain.ParseCategory(category)
			if err != nil {
				return fmt.Errorf("%w: %q", err, category)
			}

			ctx, cancel := a.context(cmd)
			defer cancel()
			if err := a.admin.Refresh(ctx); err != nil {
				return err
			}

			products := a.catalog.Filter(c, search)
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				if products == nil {
					products = []domain.Product{}
				}
				return enc.Encode(products)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tRETAIL\tWHOLESALE\tIMAGES")
			for _, p := range products {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
					p.ID, p.Name, p.Category, p.RetailPrice, p.WholesalePrice, len(p.DisplayImages()))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d product(s)\n", len(products))
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category slug (dresses, jumpsuits, sets, tops, bottoms or todos)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive match on name or description")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print products as JSON")
	return cmd
}

// draftFlags binds one flag per draft field
func draftFlags(fs *pflag.FlagSet, d *domain.ProductDraft) {
	fs.StringVar(&d.Name, "name", "", "Product name")
	fs.StringVar(&d.Description, "description", "", "Product description")
	fs.StringVar(&d.Composition, "composition", "", "Fabric composition")
	fs.StringVar(&d.Specifications, "specifications", "", "Fit and measurements")
	fs.StringVar(&d.Care, "care", "", "Care instructions")
	fs.StringVar(&d.ShippingPolicy, "shipping-policy", "", "Shipping policy text")
	fs.StringVar(&d.ExchangePolicy, "exchange-policy", "", "Exchange policy text")
	fs.StringVar(&d.RetailPrice, "retail-price", "", "Retail price in COP")
	fs.StringVar(&d.WholesalePrice, "wholesale-price", "", "Wholesale price in COP")
	fs.StringVar(&d.Category, "category", "", "Category slug (default dresses)")
	fs.StringVar(&d.Images, "images", "", "Comma separated image URLs")
	fs.StringVar(&d.Colors, "colors", "", "Comma separated colors")
	fs.StringVar(&d.Sizes, "sizes", "", "Comma separated sizes")
}

func newProductsCreateCmd(a *app) *cobra.Command {
	var draft domain.ProductDraft
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Example: `  hannuctl products create --name "Vestido Lino" --description "Vestido midi" \
    --retail-price 189000 --wholesale-price 150000 --sizes S,M,L`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			created, err := a.admin.CreateProduct(ctx, draft)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, created.ID)
			return nil
		},
	}
	draftFlags(cmd.Flags(), &draft)
	return cmd
}

// draftFromProduct renders p back into form input so that an update only
// needs the fields that change
func draftFromProduct(p domain.Product) domain.ProductDraft {
	return domain.ProductDraft{
		Name:           p.Name,
		Description:    p.Description,
		Composition:    p.Composition,
		Specifications: p.Specifications,
		Care:           p.Care,
		ShippingPolicy: p.ShippingPolicy,
		ExchangePolicy: p.ExchangePolicy,
		RetailPrice:    strconv.Itoa(p.RetailPrice),
		WholesalePrice: strconv.Itoa(p.WholesalePrice),
		Category:       string(p.Category),
		Images:         strings.Join(p.DisplayImages(), ", "),
		Colors:         strings.Join(p.Colors, ", "),
		Sizes:          strings.Join(p.Sizes, ", "),
	}
}

// overlayChanged copies the flags the user actually set onto base
func overlayChanged(fs *pflag.FlagSet, base *domain.ProductDraft, set domain.ProductDraft) {
	fields := map[string]struct {
		dst *string
		src string
	}{
		"name":            {&base.Name, set.Name},
		"description":     {&base.Description, set.Description},
		"composition":     {&base.Composition, set.Composition},
		"specifications":  {&base.Specifications, set.Specifications},
		"care":            {&base.Care, set.Care},
		"shipping-policy": {&base.ShippingPolicy, set.ShippingPolicy},
		"exchange-policy": {&base.ExchangePolicy, set.ExchangePolicy},
		"retail-price":    {&base.RetailPrice, set.RetailPrice},
		"wholesale-price": {&base.WholesalePrice, set.WholesalePrice},
		"category":        {&base.Category, set.Category},
		"images":          {&base.Images, set.Images},
		"colors":          {&base.Colors, set.Colors},
		"sizes":           {&base.Sizes, set.Sizes},
	}
	for name, f := range fields {
		if fs.Changed(name) {
			*f.dst = f.src
		}
	}
}

func newProductsUpdateCmd(a *app) *cobra.Command {
	var draft domain.ProductDraft
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a product; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := a.admin.Refresh(ctx); err != nil {
				return err
			}
			current, ok := a.catalog.Get(id)
			if !ok {
				return fmt.Errorf("%w: %s", errProductNotFound, id)
			}

			merged := draftFromProduct(current)
			overlayChanged(cmd.Flags(), &merged, draft)

			_, err := a.admin.UpdateProduct(ctx, id, merged)
			return err
		},
	}
	draftFlags(cmd.Flags(), &draft)
	return cmd
}

func newProductsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			return a.admin.DeleteProduct(ctx, args[0])
		},
	}
}

func newProductsExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			if err := a.admin.Refresh(ctx); err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			products := a.catalog.All()
			if err := spreadsheet.Export(f, products); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Exported %d product(s) to %s\n", len(products), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "catalogo.xlsx", "Output file")
	return cmd
}

func newProductsImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Create or update products from an xlsx workbook",
		Long: `Reads the first sheet of the workbook. The header row names the columns
(name, description, retail_price, wholesale_price, category, images, colors,
sizes, ...; Spanish labels such as nombre or precio work too). Rows with an id
update that product, the rest are created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := spreadsheet.ParseDrafts(f)
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			failed := 0
			for _, row := range rows {
				if row.ID != "" {
					_, err = a.admin.UpdateProduct(ctx, row.ID, row.Draft)
				} else {
					_, err = a.admin.CreateProduct(ctx, row.Draft)
				}
				if err != nil {
					failed++
					a.logger.Warn("Import row failed", zap.Int("line", row.Line), zap.Error(err))
				}
			}

			fmt.Fprintf(a.out, "Imported %d of %d row(s)\n", len(rows)-failed, len(rows))
			if failed > 0 {
				return fmt.Errorf("%d row(s) failed", failed)
			}
			return nil
		},
	}
}
