package router

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"farm_market/internal/fault"
	"farm_market/internal/middleware"
	"farm_market/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const searchResultCap = 50

// browseProducts 公开货架：只展示上架商品，支持筛选与排序。
func browseProducts(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := d.DB.WithContext(c.Request.Context()).
			Model(&model.Product{}).
			Where("is_available = ?", true)

		if cat := strings.TrimSpace(c.Query("category")); cat != "" {
			category, err := model.ToCategory(cat)
			if err != nil {
				badRequest(c, "无效的商品分类")
				return
			}
			q = q.Where("category = ?", category)
		}
		if loc := strings.TrimSpace(c.Query("location")); loc != "" {
			q = q.Where("location LIKE ?", "%"+loc+"%")
		}
		if minStr := strings.TrimSpace(c.Query("min_price")); minStr != "" {
			minPrice, err := decimal.NewFromString(minStr)
			if err != nil {
				badRequest(c, "min_price 格式错误")
				return
			}
			q = q.Where("price >= ?", minPrice)
		}
		if maxStr := strings.TrimSpace(c.Query("max_price")); maxStr != "" {
			maxPrice, err := decimal.NewFromString(maxStr)
			if err != nil {
				badRequest(c, "max_price 格式错误")
				return
			}
			q = q.Where("price <= ?", maxPrice)
		}
		if organicStr := strings.TrimSpace(c.Query("organic")); organicStr != "" {
			organic, err := strconv.ParseBool(organicStr)
			if err != nil {
				badRequest(c, "organic 只接受布尔值")
				return
			}
			q = q.Where("is_organic = ?", organic)
		}

		switch c.DefaultQuery("sort", "newest") {
		case "newest":
			q = q.Order("created_at DESC")
		case "oldest":
			q = q.Order("created_at ASC")
		case "price_asc":
			q = q.Order("price ASC")
		case "price_desc":
			q = q.Order("price DESC")
		case "name":
			q = q.Order("name ASC")
		default:
			badRequest(c, "无效的排序方式")
			return
		}

		var list []model.Product
		if err := q.Find(&list).Error; err != nil {
			writeServiceError(c, fault.AsTransient(err))
			return
		}
		ok(c, gin.H{"items": list, "count": len(list)})
	}
}

// searchProducts 按关键词在名称/描述/农户名/分类上做 LIKE 匹配，
// 可叠加 browse 的分类筛选；结果封顶 50 条。
func searchProducts(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		keyword := strings.TrimSpace(c.Query("q"))
		if keyword == "" {
			badRequest(c, "q 必填")
			return
		}
		like := "%" + keyword + "%"

		q := d.DB.WithContext(c.Request.Context()).
			Model(&model.Product{}).
			Where("is_available = ?", true).
			Where("name LIKE ? OR description LIKE ? OR farmer_name LIKE ? OR category LIKE ?",
				like, like, like, like)

		if cat := strings.TrimSpace(c.Query("category")); cat != "" {
			category, err := model.ToCategory(cat)
			if err != nil {
				badRequest(c, "无效的商品分类")
				return
			}
			q = q.Where("category = ?", category)
		}

		var list []model.Product
		if err := q.Order("created_at DESC").Limit(searchResultCap).Find(&list).Error; err != nil {
			writeServiceError(c, fault.AsTransient(err))
			return
		}
		ok(c, gin.H{"items": list, "count": len(list), "query": keyword})
	}
}

// productSuggestions 搜索联想：最多 3 个去重商品名 + 命中的分类名，
// 合计不超过 8 条；两个字符以下不联想。
func productSuggestions(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		keyword := strings.TrimSpace(c.Query("q"))
		if len(keyword) < 2 {
			ok(c, gin.H{"suggestions": []string{}})
			return
		}
		like := "%" + keyword + "%"

		var names []string
		err := d.DB.WithContext(c.Request.Context()).
			Model(&model.Product{}).
			Where("is_available = ? AND name LIKE ?", true, like).
			Distinct("name").
			Order("name ASC").
			Limit(3).
			Pluck("name", &names).Error
		if err != nil {
			writeServiceError(c, fault.AsTransient(err))
			return
		}

		suggestions := names
		lower := strings.ToLower(keyword)
		for _, cat := range model.Categories() {
			if len(suggestions) >= 8 {
				break
			}
			if strings.Contains(string(cat), lower) {
				suggestions = append(suggestions, string(cat))
			}
		}
		ok(c, gin.H{"suggestions": suggestions})
	}
}

// createProduct 农户发布商品。农户名片从目录实时取，落库为冗余展示字段。
func createProduct(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, found := middleware.PrincipalFrom(c)
		if !found {
			writeServiceError(c, fault.ErrUnauthenticated)
			return
		}
		if !p.IsFarmer() {
			c.JSON(http.StatusForbidden, gin.H{"code": 403, "msg": "仅农户可以发布商品"})
			return
		}

		var req struct {
			Name        string          `json:"name" binding:"required"`
			Category    string          `json:"category" binding:"required"`
			Description string          `json:"description"`
			Price       decimal.Decimal `json:"price" binding:"required"`
			Unit        string          `json:"unit" binding:"required"`
			Quantity    int64           `json:"quantity" binding:"required,min=1"`
			IsOrganic   bool            `json:"is_organic"`
			Location    string          `json:"location"`
			HarvestDate *time.Time      `json:"harvest_date"`
			ExpiryDate  *time.Time      `json:"expiry_date"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		category, err := model.ToCategory(req.Category)
		if err != nil {
			badRequest(c, "无效的商品分类")
			return
		}
		if !req.Price.IsPositive() {
			badRequest(c, "价格必须大于 0")
			return
		}
		name := strings.TrimSpace(req.Name)

		// 同一农户同分类下不允许同名商品（大小写不敏感）
		var dup int64
		err = d.DB.WithContext(c.Request.Context()).
			Model(&model.Product{}).
			Where("farmer_id IN ? AND category = ? AND LOWER(name) = LOWER(?)",
				p.ID.Forms(), category, name).
			Count(&dup).Error
		if err != nil {
			writeServiceError(c, fault.AsTransient(err))
			return
		}
		if dup > 0 {
			badRequest(c, "该分类下已有同名商品")
			return
		}

		farmerName := p.Name
		farmerContact := p.Contact
		if u, err := d.Dir.FindByID(c.Request.Context(), p.ID); err == nil {
			farmerName = u.Name
			farmerContact = u.Contact
		}

		product := model.Product{
			Name:          name,
			Category:      category,
			Description:   strings.TrimSpace(req.Description),
			Price:         req.Price,
			Unit:          strings.TrimSpace(req.Unit),
			Quantity:      req.Quantity,
			IsOrganic:     req.IsOrganic,
			IsAvailable:   true,
			Location:      strings.TrimSpace(req.Location),
			HarvestDate:   req.HarvestDate,
			ExpiryDate:    req.ExpiryDate,
			FarmerID:      p.ID,
			FarmerName:    farmerName,
			FarmerContact: farmerContact,
		}
		if err := d.DB.WithContext(c.Request.Context()).Create(&product).Error; err != nil {
			writeServiceError(c, fault.AsTransient(err))
			return
		}
		okMsg(c, "发布成功", product)
	}
}

// listMyProducts 农户名下全部商品（含已下架），附上下架计数。
func listMyProducts(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, found := middleware.PrincipalFrom(c)
		if !found {
			writeServiceError(c, fault.ErrUnauthenticated)
			return
		}
		if !p.IsFarmer() {
			c.JSON(http.StatusForbidden, gin.H{"code": 403, "msg": "仅农户可以查看自己的商品"})
			return
		}

		var list []model.Product
		err := d.DB.WithContext(c.Request.Context()).
			Where("farmer_id IN ?", p.ID.Forms()).
			Order("created_at DESC").
			Find(&list).Error
		if err != nil {
			writeServiceError(c, fault.AsTransient(err))
			return
		}

		available := 0
		for _, prod := range list {
			if prod.IsAvailable {
				available++
			}
		}
		ok(c, gin.H{
			"items":       list,
			"total":       len(list),
			"available":   available,
			"unavailable": len(list) - available,
		})
	}
}

// toggleProduct 上架/下架开关。下架不动库存，只是从货架隐藏。
func toggleProduct(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, found := middleware.PrincipalFrom(c)
		if !found {
			writeServiceError(c, fault.ErrUnauthenticated)
			return
		}

		product, err := loadOwnProduct(c, d, p.ID.Forms())
		if err != nil {
			writeServiceError(c, err)
			return
		}

		next := !product.IsAvailable
		// 无库存商品不允许重新上架（上架意味着可预占）
		if next && product.Quantity <= 0 {
			badRequest(c, "库存为 0，无法上架")
			return
		}

		err = d.DB.WithContext(c.Request.Context()).
			Model(&model.Product{}).
			Where("id = ?", product.ID).
			Update("is_available", next).Error
		if err != nil {
			writeServiceError(c, fault.AsTransient(err))
			return
		}
		okMsg(c, "已更新上架状态", gin.H{"id": product.ID, "is_available": next})
	}
}

// deleteProduct 下架并移除商品（软删除）。历史订单保留快照，不受影响。
func deleteProduct(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, found := middleware.PrincipalFrom(c)
		if !found {
			writeServiceError(c, fault.ErrUnauthenticated)
			return
		}

		product, err := loadOwnProduct(c, d, p.ID.Forms())
		if err != nil {
			writeServiceError(c, err)
			return
		}

		if err := d.DB.WithContext(c.Request.Context()).Delete(&model.Product{}, product.ID).Error; err != nil {
			writeServiceError(c, fault.AsTransient(err))
			return
		}
		okMsg(c, "已删除商品", gin.H{"id": product.ID})
	}
}

// loadOwnProduct 解析路径参数并校验归属：只能操作自己的商品。
func loadOwnProduct(c *gin.Context, d Deps, ownerForms []string) (model.Product, error) {
	id, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
	if err != nil {
		return model.Product{}, fault.ErrNotFound
	}

	var product model.Product
	err = d.DB.WithContext(c.Request.Context()).First(&product, uint(id)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Product{}, fault.ErrNotFound
		}
		return model.Product{}, fault.AsTransient(err)
	}

	for _, form := range ownerForms {
		if string(product.FarmerID) == form {
			return product, nil
		}
	}
	return model.Product{}, fault.ErrForbidden
}
