// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cisnetsa/cisnet-backend/internal/config"
	"github.com/cisnetsa/cisnet-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		}
	} else {
		gormConfig = &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Info),
			TranslateError: true,
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.FileGrant{},
		&models.AuditLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)",
		"CREATE INDEX IF NOT EXISTS idx_users_provider ON users(provider)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)",
		"CREATE INDEX IF NOT EXISTS idx_products_featured ON products(featured) WHERE featured = true",
		"CREATE INDEX IF NOT EXISTS idx_products_active ON products(active)",

		// Cart indexes
		"CREATE INDEX IF NOT EXISTS idx_cart_items_user ON cart_items(user_id)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)",

		// File grant indexes
		"CREATE INDEX IF NOT EXISTS idx_file_grants_order ON file_grants(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_file_grants_email_product ON file_grants(user_email, product_id)",
		"CREATE INDEX IF NOT EXISTS idx_file_grants_status ON file_grants(status)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// Create default admin user
	var adminCount int64
	db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Name:     "Administrador CISNET",
			Email:    "admin@cisnetsa.com",
			Role:     models.UserRoleAdmin,
			Provider: models.AuthProviderLocal,
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	if err := seedCatalog(db); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	log.Println("Initial data seeding completed")
	return nil
}

func seedCatalog(db *gorm.DB) error {
	var productCount int64
	db.Model(&models.Product{}).Count(&productCount)
	if productCount > 0 {
		return nil
	}

	products := []models.Product{
		{ID: "1", Name: "Microsoft Office 365", Description: "Suite completa de productividad con Word, Excel, PowerPoint y más. Licencia anual para 1 usuario.", Price: 99.99, Category: "Ofimática", ImageURL: "https://images.unsplash.com/photo-1633114128174-2f8aa49759b0?w=400", Featured: true, Active: true},
		{ID: "2", Name: "Sistema de Facturación", Description: "Sistema de facturación electrónica para pequeñas y medianas empresas. Incluye soporte técnico por 1 año.", Price: 299.99, Category: "Negocios", ImageURL: "https://images.unsplash.com/photo-1554224155-6726b3ff858f?w=400", Featured: false, Active: true},
		{ID: "3", Name: "Sistema POS", Description: "Punto de venta completo para comercios. Control de inventario, ventas y reportes en tiempo real.", Price: 199.99, Category: "Negocios", ImageURL: "https://images.unsplash.com/photo-1556742049-0cfed4f6a45d?w=400", Featured: true, Active: true},
		{ID: "4", Name: "Adobe Creative Suite", Description: "Herramientas profesionales de diseño gráfico, edición de video y fotografía.", Price: 199.99, Category: "Diseño", ImageURL: "https://images.unsplash.com/photo-1626785774573-4b799315345d?w=400", Featured: true, Active: true},
		{ID: "5", Name: "Sistema de Inventarios", Description: "Control de inventarios con alertas de stock, códigos de barras y reportes exportables.", Price: 149.99, Category: "Negocios", ImageURL: "https://images.unsplash.com/photo-1586528116311-ad8dd3c8310d?w=400", Featured: false, Active: true},
		{ID: "7", Name: "Microsoft Office 365", Description: "Suite ofimática completa, versión 2024. Descarga inmediata tras la compra.", Price: 99.99, Category: "Ofimática", ImageURL: "https://images.unsplash.com/photo-1633114128174-2f8aa49759b0?w=400", Featured: true, Active: true},
		{ID: "8", Name: "Adobe Photoshop 2024", Description: "Editor de imágenes líder de la industria. Licencia perpetua.", Price: 249.99, Category: "Diseño", ImageURL: "https://images.unsplash.com/photo-1609921212029-bb5a28e60960?w=400", Featured: true, Active: true},
		{ID: "9", Name: "Visual Studio Code Pro Pack", Description: "Paquete de extensiones y configuración profesional para desarrollo.", Price: 49.99, Category: "Desarrollo", ImageURL: "https://images.unsplash.com/photo-1555066931-4365d14bab8c?w=400", Featured: false, Active: true},
		{ID: "10", Name: "Windows 11 Pro", Description: "Sistema operativo Windows 11 Professional. Clave de activación original.", Price: 179.99, Category: "Sistemas", ImageURL: "https://images.unsplash.com/photo-1624571409108-e9a41746af53?w=400", Featured: true, Active: true},
		{ID: "11", Name: "AutoCAD 2024", Description: "Software de diseño asistido por computadora para arquitectura e ingeniería.", Price: 399.99, Category: "Diseño", ImageURL: "https://images.unsplash.com/photo-1503387762-592deb58ef4e?w=400", Featured: false, Active: true},
		{ID: "12", Name: "Minecraft Java Edition", Description: "Juego de construcción y aventura. Licencia oficial para PC.", Price: 29.99, Category: "Juegos", ImageURL: "https://images.unsplash.com/photo-1587573089734-09cb69c0f2b4?w=400", Featured: false, Active: true},
		{ID: "13", Name: "Norton 360 Deluxe", Description: "Antivirus y protección completa para 5 dispositivos. Suscripción anual.", Price: 89.99, Category: "Seguridad", ImageURL: "https://images.unsplash.com/photo-1563013544-824ae1b704d3?w=400", Featured: false, Active: true},
		{ID: "14", Name: "Zoom Pro", Description: "Videoconferencias profesionales sin límite de tiempo. Licencia anual.", Price: 149.99, Category: "Comunicación", ImageURL: "https://images.unsplash.com/photo-1588196749597-9ff075ee6b5b?w=400", Featured: false, Active: true},
		{ID: "15", Name: "Adobe Creative Suite", Description: "Colección completa de aplicaciones creativas de Adobe, versión 2024.", Price: 199.99, Category: "Diseño", ImageURL: "https://images.unsplash.com/photo-1626785774573-4b799315345d?w=400", Featured: true, Active: true},
		{ID: "16", Name: "IntelliJ IDEA Ultimate", Description: "IDE profesional para desarrollo en Java, Kotlin y más. Licencia anual.", Price: 169.99, Category: "Desarrollo", ImageURL: "https://images.unsplash.com/photo-1517180102446-f3ece451e9d8?w=400", Featured: false, Active: true},
		{ID: "17", Name: "Spotify Premium", Description: "Música sin anuncios y descargas ilimitadas. Suscripción anual.", Price: 119.99, Category: "Entretenimiento", ImageURL: "https://images.unsplash.com/photo-1611339555312-e607c8352fd7?w=400", Featured: false, Active: true},
		{ID: "18", Name: "VMware Workstation Pro", Description: "Virtualización de escritorio para profesionales de TI. Licencia perpetua.", Price: 199.99, Category: "Sistemas", ImageURL: "https://images.unsplash.com/photo-1558494949-ef010cbdcc31?w=400", Featured: false, Active: true},
	}

	for _, product := range products {
		if err := db.Create(&product).Error; err != nil {
			return fmt.Errorf("failed to seed product %s: %w", product.ID, err)
		}
	}

	log.Printf("Seeded %d catalog products", len(products))
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
