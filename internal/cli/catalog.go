package cli

import (
	"github.com/spf13/cobra"

	"github.com/khomabhena/h5-airtime/internal/appletree"
)

var (
	catalogCountry  string
	catalogService  int
	catalogProvider int
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse the VAS product catalog",
	Long:  `Query the VAS aggregator for countries, services, providers and products`,
}

var catalogCountriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List available countries",
	RunE: func(cmd *cobra.Command, args []string) error {
		countries, err := newVASGateway().GetCountries(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(countries)
	},
}

var catalogServicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List available service categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := newVASGateway().GetServices(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(services)
	},
}

var catalogProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List service providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		providers, err := newVASGateway().GetServiceProviders(cmd.Context(), appletree.ProviderFilter{
			CountryCode: catalogCountry,
			ServiceID:   catalogService,
		})
		if err != nil {
			return err
		}
		return printJSON(providers)
	},
}

var catalogProductsCmd = &cobra.Command{
	Use:   "products",
	Short: "List products for a country and service",
	RunE: func(cmd *cobra.Command, args []string) error {
		products, err := newVASGateway().GetProducts(cmd.Context(), appletree.ProductFilter{
			CountryCode:       catalogCountry,
			ServiceID:         catalogService,
			ServiceProviderID: catalogProvider,
		})
		if err != nil {
			return err
		}
		return printJSON(products)
	},
}

func init() {
	catalogCmd.PersistentFlags().StringVar(&catalogCountry, "country", "", "ISO country code (e.g. ZW)")
	catalogCmd.PersistentFlags().IntVar(&catalogService, "service", 0, "Service ID (1 = mobile airtime)")
	catalogProductsCmd.Flags().IntVar(&catalogProvider, "provider", 0, "Service provider ID filter")

	catalogCmd.AddCommand(catalogCountriesCmd)
	catalogCmd.AddCommand(catalogServicesCmd)
	catalogCmd.AddCommand(catalogProvidersCmd)
	catalogCmd.AddCommand(catalogProductsCmd)
}
