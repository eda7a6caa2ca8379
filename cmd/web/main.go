// @title           TradeHub API
// @version         1.0
// @description     API для управления trade-бизнесом: компании, команда, подписки и биллинг (документация Swagger).
// @contact.name    TradeHub Support
// @contact.email   support@tradehub.dev
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:4000
// @BasePath        /api/v1

package main

import "tradehub_backend/internal/app"

func main() {
	app.Run()
}
