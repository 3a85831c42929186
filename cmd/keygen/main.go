// keygen generates merchant RSA signing key pairs for the checkout core and
// the sandbox verifier.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/khomabhena/h5-airtime/internal/signature"
	"github.com/khomabhena/h5-airtime/internal/version"
)

// file naming convention - name.private.pem / name.private.jwk etc.
const (
	privatePEMFormat = "%s.private.pem"
	privateJWKFormat = "%s.private.jwk"
	publicPEMFormat  = "%s.public.pem"
	publicJWKFormat  = "%s.public.jwk"
)

var (
	keyName   string
	outputDir string
	rsaSize   int
	kid       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "keygen",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "Merchant RSA key generator",
		Long:              "Generate an RSA key pair for merchant request signing, in PKCS#8 PEM and JWK formats",
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new key pair",
		Long:  "Generate a new RSA key pair and write it in both PEM and JWK formats",
		RunE:  runGenerate,
	}

	generateCmd.Flags().StringVarP(&keyName, "name", "n", "merchant", "Base name for the key files")
	generateCmd.Flags().StringVarP(&outputDir, "outputdir", "o", "", "Output directory for generated keys [required]")
	generateCmd.Flags().IntVarP(&rsaSize, "size", "s", 2048, "RSA key size in bits (2048 or 4096)")
	generateCmd.Flags().StringVarP(&kid, "kid", "k", "", "Key ID for the JWK files (e.g. the merchant key serial number)")
	_ = generateCmd.MarkFlagRequired("outputdir")

	rootCmd.AddCommand(generateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if rsaSize != 2048 && rsaSize != 4096 {
		return fmt.Errorf("invalid RSA key size: %d (must be 2048 or 4096)", rsaSize)
	}

	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	fmt.Printf("Generating %d-bit RSA key pair: %s\n", rsaSize, keyName)

	privateKey, err := rsa.GenerateKey(rand.Reader, rsaSize)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key: %w", err)
	}

	files := []struct {
		format string
		save   func(filename string) error
	}{
		{privatePEMFormat, func(f string) error {
			return signature.SavePrivateKeyToPEMFile(privateKey, outputDir, f)
		}},
		{privateJWKFormat, func(f string) error {
			return signature.SavePrivateKeyToJWKFile(privateKey, kid, outputDir, f)
		}},
		{publicPEMFormat, func(f string) error {
			return signature.SavePublicKeyToPEMFile(&privateKey.PublicKey, outputDir, f)
		}},
		{publicJWKFormat, func(f string) error {
			return signature.SavePublicKeyToJWKFile(&privateKey.PublicKey, kid, outputDir, f)
		}},
	}

	for _, file := range files {
		filename := fmt.Sprintf(file.format, keyName)
		if err := file.save(filename); err != nil {
			return fmt.Errorf("failed to save %s: %w", filename, err)
		}
		fmt.Printf("✓ %s\n", filepath.Join(outputDir, filename))
	}

	fmt.Println("Keep the private key files secure - they authorize payment requests for your merchant account.")
	return nil
}
