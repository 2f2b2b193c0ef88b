package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           modalnavd API
// @version         1.0
// @description     Modal-aware Inertia-style page server.
//
// @contact.name   modalnavd maintainers
// @contact.url    https://github.com/your-org/modalnav
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
