package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fjod/go_cart/cartstore/internal/catalog"
	"github.com/fjod/go_cart/cartstore/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var productFilter catalog.Filter

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !catalog.ValidSort(productFilter.Sort) {
			return fmt.Errorf("unknown sort %q", productFilter.Sort)
		}
		return printProducts(cmd, catalog.Default().List(productFilter))
	},
}

func init() {
	productsCmd.Flags().StringVar(&productFilter.Category, "category", catalog.CategoryAll, "category to list")
	productsCmd.Flags().Float64Var(&productFilter.MinPrice, "min-price", 0, "lowest price, inclusive")
	productsCmd.Flags().Float64Var(&productFilter.MaxPrice, "max-price", 0, "highest price, inclusive (0 for no bound)")
	productsCmd.Flags().StringVar(&productFilter.Sort, "sort", catalog.SortNone, "none, low-to-high or high-to-low")
}

func printProducts(cmd *cobra.Command, products []domain.Product) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tRATING")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.1f\n",
			p.ID, p.Name, p.Category, domain.Display(decimal.NewFromFloat(p.Price)), p.Rating)
	}
	return w.Flush()
}
