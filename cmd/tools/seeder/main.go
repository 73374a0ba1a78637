package main

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	seedCustomers(ctx, conn)
	seedProducts(ctx, conn)
	seedSpecialMargins(ctx, conn)

	log.Println("Seeding completed successfully!")
}

func seedCustomers(ctx context.Context, conn *pgx.Conn) {
	customers := []struct {
		ID        string
		Name      string
		Contact   string
		Treatment string
		Margin    string
	}{
		{"cust-sharma", "Sharma Distributors", "Rakesh Sharma", "inclusive", "40%"},
		{"cust-mehta", "Mehta Trading Co", "Priya Mehta", "exclusive", "45%"},
		{"cust-agarwal", "Agarwal Wholesale", "Vikram Agarwal", "exclusive", "40%"},
		{"cust-patel", "Patel & Sons", "Nilesh Patel", "inclusive", "35%"},
		{"cust-reddy", "Reddy Supplies", "Anitha Reddy", "exclusive", "50%"},
	}

	log.Println("Seeding Customers...")
	for _, c := range customers {
		_, err := conn.Exec(ctx, `
			INSERT INTO customers (id, name, contact_name, gst_treatment, default_margin)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				contact_name = EXCLUDED.contact_name,
				gst_treatment = EXCLUDED.gst_treatment,
				default_margin = EXCLUDED.default_margin,
				updated_at = now();
		`, c.ID, c.Name, c.Contact, c.Treatment, c.Margin)
		if err != nil {
			log.Printf("Failed to seed customer %s: %v", c.ID, err)
		}
	}
}

func seedProducts(ctx context.Context, conn *pgx.Conn) {
	products := []struct {
		ID    string
		Name  string
		Brand string
		SKU   string
		Rate  float64
		Stock int
		Tax   float64
	}{
		{"prod-drill-18v", "Cordless Drill 18V", "Bosch", "BSH-DRL-18V", 5200, 40, 18},
		{"prod-grinder-4in", "Angle Grinder 4in", "Bosch", "BSH-GRD-4IN", 2450, 65, 18},
		{"prod-jigsaw", "Jigsaw 650W", "Makita", "MKT-JSW-650", 4100, 25, 18},
		{"prod-circular-saw", "Circular Saw 7in", "Makita", "MKT-CSW-7IN", 6800, 18, 18},
		{"prod-impact-driver", "Impact Driver 12V", "DeWalt", "DWT-IMP-12V", 5900, 30, 18},
		{"prod-sander-orbital", "Orbital Sander 240W", "DeWalt", "DWT-SND-240", 3300, 22, 18},
		{"prod-welding-rods", "Welding Rods 2.5mm 5kg", "ESAB", "ESB-WRD-25", 1150, 120, 12},
		{"prod-safety-helmet", "Safety Helmet", "Karam", "KRM-HLM-STD", 280, 300, 12},
		{"prod-work-gloves", "Leather Work Gloves", "Karam", "KRM-GLV-LTH", 150, 450, 5},
		{"prod-measuring-tape", "Measuring Tape 7.5m", "Stanley", "STN-TPE-75", 220, 200, 12},
	}

	log.Println("Seeding Products...")
	for _, p := range products {
		_, err := conn.Exec(ctx, `
			INSERT INTO products (id, name, brand, sku, rate, stock, tax_percent, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				brand = EXCLUDED.brand,
				sku = EXCLUDED.sku,
				rate = EXCLUDED.rate,
				stock = EXCLUDED.stock,
				tax_percent = EXCLUDED.tax_percent,
				active = TRUE,
				updated_at = now();
		`, p.ID, p.Name, p.Brand, p.SKU, p.Rate, p.Stock, p.Tax)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.ID, err)
		}
	}
}

func seedSpecialMargins(ctx context.Context, conn *pgx.Conn) {
	margins := []struct {
		CustomerID string
		ProductID  string
		Margin     string
	}{
		{"cust-sharma", "prod-drill-18v", "30%"},
		{"cust-sharma", "prod-grinder-4in", "32%"},
		{"cust-mehta", "prod-welding-rods", "25%"},
		{"cust-reddy", "prod-safety-helmet", "55%"},
	}

	log.Println("Seeding Special Margins...")
	for _, m := range margins {
		_, err := conn.Exec(ctx, `
			INSERT INTO special_margins (customer_id, product_id, margin)
			VALUES ($1, $2, $3)
			ON CONFLICT (customer_id, product_id) DO UPDATE SET
				margin = EXCLUDED.margin,
				updated_at = now();
		`, m.CustomerID, m.ProductID, m.Margin)
		if err != nil {
			log.Printf("Failed to seed margin %s/%s: %v", m.CustomerID, m.ProductID, err)
		}
	}
}
