package model

import "github.com/google/uuid"

// Restaurant is a brand-level record; physical presence lives in the
// locations table.
type Restaurant struct {
    ID          uuid.UUID // restaurants.id
    Name        string    // restaurants.name (unique)
    Description string    // restaurants.description
}

// Address is a street address referenced by locations and employees.
type Address struct {
    ID        uuid.UUID // addresses.id
    City      string    // addresses.city
    Street    string    // addresses.street
    House     string    // addresses.house
    Apartment *string   // addresses.apartment (nullable)
}
